package crashtracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type dryRunClient struct {
	log *logrus.Entry
}

var _ Client = (*dryRunClient)(nil)

// NewDryRunClient returns a Client that only logs. Used when SENTRY_DSN is unset.
func NewDryRunClient(log *logrus.Entry) Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &dryRunClient{log: log}
}

func (d *dryRunClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	d.log.WithContext(ctx).Errorf("[DRY_RUN Crash Reporter] %+v", err)
}

func (d *dryRunClient) LogAndReportMessages(ctx context.Context, msg string) {
	d.log.WithContext(ctx).Infof("[DRY_RUN Crash Reporter] %s", msg)
}

func (d *dryRunClient) FlushEvents(time.Duration) bool { return false }

func (d *dryRunClient) Recover() {}
