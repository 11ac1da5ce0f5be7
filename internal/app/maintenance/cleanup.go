package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/grantstore/internal/services"
	"github.com/charlesng35/grantstore/pkg/logger"
	"github.com/charlesng35/grantstore/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultGaugeSpec          = "@every 5m"
)

// GrantCounter reports how many grants are stored.
type GrantCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: pruning stale audit logs and
// re-syncing the stored-grant gauge with the database.
type Cleaner struct {
	audit     *services.AuditService
	grants    GrantCounter
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	auditSchedule string
	gaugeSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained; zero disables pruning.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days >= 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithGaugeSchedule overrides the cron specification for the grant gauge refresh.
func WithGaugeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.gaugeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the job that needs it.
func NewCleaner(audit *services.AuditService, grants GrantCounter, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:         audit,
		grants:        grants,
		retention:     defaultAuditRetentionDays,
		auditSchedule: defaultAuditSpec,
		gaugeSchedule: defaultGaugeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// job is one scheduled maintenance routine.
type job struct {
	name string
	spec string
	run  func(context.Context) error
}

// jobs lists the routines whose dependencies are configured.
func (c *Cleaner) jobs() []job {
	var out []job
	if c.audit != nil && c.retention > 0 {
		out = append(out, job{name: "audit_retention", spec: c.auditSchedule, run: c.pruneAudit})
	}
	if c.grants != nil {
		out = append(out, job{name: "grant_gauge", spec: c.gaugeSchedule, run: c.refreshGauge})
	}
	return out
}

// Start schedules every enabled job. The scheduler only runs when there is at least one.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	for _, j := range jobs {
		if _, err := c.cron.AddFunc(j.spec, func() {
			if err := j.run(context.Background()); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s %q: %w", j.name, j.spec, err)
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	c.cron.Start()
	c.log.Info("maintenance scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop halts the underlying scheduler, returning a context done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce runs every enabled job now and joins their failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		if err := j.run(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errs
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	start := time.Now()
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		return err
	}
	c.log.Info("audit logs pruned",
		zap.Int64("removed", removed),
		zap.Int("retention_days", c.retention),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (c *Cleaner) refreshGauge(ctx context.Context) error {
	total, err := c.grants.Count(ctx)
	if err != nil {
		return err
	}
	metrics.Authorizations.Set(float64(total))
	return nil
}
