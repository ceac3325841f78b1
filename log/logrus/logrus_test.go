package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/vercache"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Warn("backend error", vercache.Fields{"op": "set", "err": errors.New("down")})
	l.Debug("group version seeded", vercache.Fields{"group": "users"})

	if len(hook.Entries) != 2 {
		t.Fatalf("entries=%d want 2", len(hook.Entries))
	}
	e := hook.Entries[0]
	if e.Level != logrus.WarnLevel || e.Message != "backend error" {
		t.Fatalf("entry=%+v", e)
	}
	if e.Data["op"] != "set" {
		t.Fatalf("op=%v", e.Data["op"])
	}
	if err, _ := e.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "down" {
		t.Fatalf("error key=%v", e.Data[logrus.ErrorKey])
	}
	if hook.LastEntry().Data["group"] != "users" {
		t.Fatalf("group=%v", hook.LastEntry().Data["group"])
	}
}
