package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuthEventLogger records verification outcomes to an external sink.
// Implementations should be non-blocking and best-effort.
type AuthEventLogger interface {
	LogVerification(ctx context.Context, strategy Strategy, domain string, payload *JWTPayload, err error)
}

// LogrusEventLogger writes verification events as structured log lines.
type LogrusEventLogger struct {
	Entry *logrus.Entry
}

func (l LogrusEventLogger) LogVerification(_ context.Context, strategy Strategy, domain string, payload *JWTPayload, err error) {
	entry := l.Entry
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	entry = entry.WithFields(logrus.Fields{
		"strategy": string(strategy),
		"domain":   domain,
	})
	if err != nil {
		entry.WithField("kind", KindOf(err).String()).WithError(err).Info("token rejected")
		return
	}
	entry.WithField("fid", payload.Sub).Debug("token verified")
}
