// Package crashtracker reports unexpected errors and panics of the airdrop service.
package crashtracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client logs and reports errors that should never happen in normal operation.
type Client interface {
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	FlushEvents(waitTime time.Duration) bool
	Recover()
}

type Type string

const (
	// TypeSentry sends events to Sentry.
	TypeSentry Type = "SENTRY"
	// TypeDryRun only logs.
	TypeDryRun Type = "DRY_RUN"
)

// ParseType parses a crash tracker type, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeSentry, TypeDryRun:
		return t, nil
	default:
		return "", fmt.Errorf("invalid crash tracker type %q", s)
	}
}

// Options selects and configures a Client.
type Options struct {
	Type        Type
	Environment string
	Release     string
	SentryDSN   string
	Logger      *logrus.Entry
}

// NewClient returns the client selected by opts.Type.
func NewClient(opts Options) (Client, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	switch opts.Type {
	case TypeSentry:
		log.Infof("Using %q crash tracker", opts.Type)
		return NewSentryClient(opts.SentryDSN, opts.Environment, opts.Release, log)
	case TypeDryRun:
		log.Warnf("Using %q crash tracker", opts.Type)
		return NewDryRunClient(log), nil
	default:
		return nil, fmt.Errorf("unknown crash tracker type: %q", opts.Type)
	}
}
