// Package config loads the distributed-backend topology:
//
//	Clusters:
//	  - Host: 10.0.0.1
//	    Port: 11211
//	  - Host: 10.0.0.2
//	    Port: 11211
//	    Weight: 70
//	ExpireTime: 300
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultFile       = "library_memcache_clustering"
	DefaultExpireTime = 300 // seconds
	EnvPrefix         = "VERCACHE"
	EnvConfigPath     = EnvPrefix + "_CONFIG_PATH"
)

type Server struct {
	Host   string `mapstructure:"Host"`
	Port   int    `mapstructure:"Port"`
	Weight int    `mapstructure:"Weight"` // 0 => floor(100 / len(Clusters))
}

type Clustering struct {
	Clusters   []Server `mapstructure:"Clusters"`
	ExpireTime int      `mapstructure:"ExpireTime"` // seconds
}

// Load reads <dir>/<file>.{yaml,yml}. Empty dir falls back to $VERCACHE_CONFIG_PATH,
// then "."; empty file to DefaultFile. A missing file is not an error: the
// result has no servers, so the distributed backend runs degraded.
// VERCACHE_EXPIRETIME overrides the file; <dir>/.env is loaded first when present.
func Load(dir, file string) (*Clustering, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigPath)
	}
	if dir == "" {
		dir = "."
	}
	if file == "" {
		file = DefaultFile
	}

	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName(file)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetDefault("ExpireTime", DefaultExpireTime)
	v.SetEnvPrefix(EnvPrefix)
	_ = v.BindEnv("ExpireTime")

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cl Clustering
	if err := v.Unmarshal(&cl); err != nil {
		return nil, fmt.Errorf("config: unable to decode clustering: %w", err)
	}
	return &cl, nil
}

// Servers returns the cluster list with weights filled in.
func (c *Clustering) Servers() []Server {
	if c == nil || len(c.Clusters) == 0 {
		return nil
	}
	def := 100 / len(c.Clusters)
	out := make([]Server, len(c.Clusters))
	for i, s := range c.Clusters {
		if s.Weight <= 0 {
			s.Weight = def
		}
		out[i] = s
	}
	return out
}

// Addresses renders "proto://host:port?persistent=1&weight=W" entries, skipping
// servers with neither host nor port. Empty protocol omits the scheme.
func (c *Clustering) Addresses(protocol string) []string {
	prefix := ""
	if protocol != "" {
		prefix = protocol + "://"
	}
	var out []string
	for _, s := range c.Servers() {
		if s.Host == "" && s.Port == 0 {
			continue
		}
		port := ""
		if s.Port != 0 {
			port = strconv.Itoa(s.Port)
		}
		out = append(out, fmt.Sprintf("%s%s:%s?persistent=1&weight=%d", prefix, s.Host, port, s.Weight))
	}
	return out
}

// TTL is ExpireTime as a duration; non-positive values fall back to the default.
func (c *Clustering) TTL() time.Duration {
	if c == nil || c.ExpireTime <= 0 {
		return DefaultExpireTime * time.Second
	}
	return time.Duration(c.ExpireTime) * time.Second
}

// String implements fmt.Stringer
func (c *Clustering) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for i, s := range c.Servers() {
		sb.WriteString(fmt.Sprintf("  Server[%d]: %s:%d weight=%d\n", i, s.Host, s.Port, s.Weight))
	}
	sb.WriteString(fmt.Sprintf("  ExpireTime: %s\n", c.TTL()))
	return sb.String()
}
