package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/vercache"
)

var _ vercache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f vercache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f vercache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f vercache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f vercache.Fields) { l.with(f).Error(msg) }

// with routes an "err" field through logrus' error key.
func (l LogrusLogger) with(f vercache.Fields) *logrus.Entry {
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	return e
}
