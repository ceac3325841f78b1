package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/vercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	SeedEvery     uint64
	// Optional key redactor. Defaults to SHA-256 prefix. Group names are not redacted.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	seedCtr     atomic.Uint64
}

var _ vercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) VersionSeeded(group string) {
	if h.l == nil || !sample(h.opts.SeedEvery, &h.seedCtr) {
		return
	}
	h.l.Debug("vercache.version_seeded", "group", group)
}

func (h *Hooks) GroupInvalidated(group string, newVersion uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("vercache.group_invalidated",
		"group", group,
		"version", newVersion)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("vercache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) BackendError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("vercache.backend_error",
		"op", op,
		"err", err)
}

func (h *Hooks) SetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("vercache.set_rejected",
		"key", h.redact(storageKey))
}
