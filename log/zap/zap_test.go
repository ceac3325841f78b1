package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/vercache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZap(zap.New(core))

	l.Debug("group invalidated", vercache.Fields{"group": "users", "version": uint64(2)})
	l.Warn("backend error", vercache.Fields{"op": "get", "err": errors.New("boom")})
	l.Info("cache cleared", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries=%d want 3", len(entries))
	}
	if entries[0].LoggerName != "vercache" {
		t.Fatalf("logger name=%q", entries[0].LoggerName)
	}
	ctx := entries[0].ContextMap()
	if ctx["group"] != "users" || ctx["version"] != uint64(2) {
		t.Fatalf("fields=%v", ctx)
	}
	if got := entries[1].ContextMap()["err"]; got != "boom" {
		t.Fatalf("err field=%v", got)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("level=%s", entries[1].Level)
	}
}
