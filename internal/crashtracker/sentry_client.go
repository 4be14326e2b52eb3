package crashtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

type sentryHub interface {
	CaptureException(exception error) *sentry.EventID
	CaptureMessage(message string) *sentry.EventID
	Flush(timeout time.Duration) bool
	Recover(err interface{}) *sentry.EventID
}

var _ sentryHub = (*sentry.Hub)(nil)

type sentryClient struct {
	hub sentryHub
	log *logrus.Entry
}

var _ Client = (*sentryClient)(nil)

// NewSentryClient initializes the global Sentry SDK and reports through its current hub.
func NewSentryClient(dsn, environment, release string, log *logrus.Entry) (Client, error) {
	if dsn == "" {
		return nil, errors.New("sentry dsn is required")
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return nil, fmt.Errorf("error setting up Sentry: %w", err)
	}
	return &sentryClient{hub: sentry.CurrentHub(), log: log}, nil
}

func (s *sentryClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if errors.Is(err, context.Canceled) {
		s.log.Warn("context canceled, not reporting error to sentry")
		return
	}
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	s.log.WithContext(ctx).Errorf("%+v", err)
	s.hub.CaptureException(err)
}

func (s *sentryClient) LogAndReportMessages(ctx context.Context, msg string) {
	s.log.WithContext(ctx).Info(msg)
	s.hub.CaptureMessage(msg)
}

func (s *sentryClient) FlushEvents(waitTime time.Duration) bool {
	return s.hub.Flush(waitTime)
}

// Recover must be deferred directly by the goroutine it protects.
func (s *sentryClient) Recover() {
	if err := recover(); err != nil {
		s.hub.Recover(err)
	}
}
