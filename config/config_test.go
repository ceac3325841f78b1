package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadClustering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile+".yml", `
Clusters:
  - Host: 10.0.0.1
    Port: 11211
  - Host: 10.0.0.2
    Port: 11212
  - Host: 10.0.0.3
    Port: 11213
    Weight: 10
ExpireTime: 60
`)
	cl, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cl.Clusters) != 3 {
		t.Fatalf("clusters=%d want 3", len(cl.Clusters))
	}
	if cl.TTL() != time.Minute {
		t.Fatalf("TTL=%s want 1m", cl.TTL())
	}

	srv := cl.Servers()
	// floor(100/3) for unspecified, explicit weight kept
	if srv[0].Weight != 33 || srv[1].Weight != 33 || srv[2].Weight != 10 {
		t.Fatalf("weights=%d,%d,%d want 33,33,10", srv[0].Weight, srv[1].Weight, srv[2].Weight)
	}
	// Servers must not mutate the loaded list
	if cl.Clusters[0].Weight != 0 {
		t.Fatalf("Servers mutated Clusters")
	}
}

func TestLoadMissingFileDegrades(t *testing.T) {
	cl, err := Load(t.TempDir(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cl.Servers()) != 0 {
		t.Fatalf("expected no servers, got %v", cl.Servers())
	}
	if cl.TTL() != DefaultExpireTime*time.Second {
		t.Fatalf("TTL=%s want default", cl.TTL())
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "Clusters: [\n")
	if _, err := Load(dir, "broken"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadEnvOverridesAndConfigPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.yaml", "ExpireTime: 60\n")
	t.Setenv(EnvConfigPath, dir)
	t.Setenv("VERCACHE_EXPIRETIME", "120")

	cl, err := Load("", "c")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cl.ExpireTime != 120 {
		t.Fatalf("ExpireTime=%d want 120 from env", cl.ExpireTime)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.yaml", "ExpireTime: 60\n")
	writeFile(t, dir, ".env", "VERCACHE_EXPIRETIME=90\n")
	// register for cleanup; godotenv does not override variables already set
	t.Setenv("VERCACHE_EXPIRETIME", "")
	os.Unsetenv("VERCACHE_EXPIRETIME")

	cl, err := Load(dir, "c")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cl.ExpireTime != 90 {
		t.Fatalf("ExpireTime=%d want 90 from .env", cl.ExpireTime)
	}
}

func TestAddresses(t *testing.T) {
	cl := &Clustering{Clusters: []Server{
		{Host: "a", Port: 1},
		{},
		{Host: "b", Port: 2, Weight: 7},
	}}
	got := cl.Addresses("tcp")
	want := []string{
		"tcp://a:1?persistent=1&weight=33",
		"tcp://b:2?persistent=1&weight=7",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Addresses=%v want %v", got, want)
	}
	if noScheme := cl.Addresses(""); noScheme[0] != "a:1?persistent=1&weight=33" {
		t.Fatalf("Addresses(\"\")=%v", noScheme)
	}
}

func TestStringAndNil(t *testing.T) {
	var nilCl *Clustering
	if nilCl.Servers() != nil || nilCl.TTL() != DefaultExpireTime*time.Second {
		t.Fatalf("nil clustering should behave as empty")
	}
	cl := &Clustering{Clusters: []Server{{Host: "h", Port: 9}}, ExpireTime: 5}
	s := cl.String()
	if !strings.Contains(s, "h:9 weight=100") || !strings.Contains(s, "ExpireTime: 5s") {
		t.Fatalf("String()=%q", s)
	}
}
