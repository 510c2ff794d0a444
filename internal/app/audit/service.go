// Package audit periodically checks the persisted collection for structural
// problems. It only reports; it never repairs data.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/metrics"
	"github.com/R3E-Network/app_registry/internal/app/system"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

var _ system.Service = (*Service)(nil)

// Validator is the part of the record store the audit needs.
type Validator interface {
	ValidateCollection(ctx context.Context) error
}

// Report summarizes one audit run.
type Report struct {
	RanAt    time.Time
	Findings []*application.ValidationError
	Err      error
}

// Clean reports whether the run succeeded with no findings.
func (r Report) Clean() bool { return r.Err == nil && len(r.Findings) == 0 }

// Service runs the audit on a cron schedule.
type Service struct {
	validator Validator
	schedule  string
	timeout   time.Duration
	log       *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	last    Report
	hasLast bool
}

// New creates an audit service. An empty schedule makes Start a no-op.
func New(validator Validator, schedule string, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("audit")
	}
	schedule = strings.TrimSpace(schedule)
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid audit schedule %q: %w", schedule, err)
		}
	}
	return &Service{
		validator: validator,
		schedule:  schedule,
		timeout:   30 * time.Second,
		log:       log,
		now:       time.Now,
	}, nil
}

func (s *Service) Name() string { return "collection-audit" }

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	if s.schedule == "" {
		s.log.Info("collection audit disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule audit: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.WithField("schedule", s.schedule).Info("collection audit started")
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("collection audit stopped")
	return nil
}

// RunOnce audits the collection immediately, logs every finding and updates
// the audit metrics.
func (s *Service) RunOnce(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := Report{RanAt: s.now()}
	err := s.validator.ValidateCollection(ctx)
	findings := application.Findings(err)
	switch {
	case err == nil:
	case len(findings) > 0 && allValidation(err):
		report.Findings = findings
	default:
		report.Err = err
	}

	if report.Err != nil {
		s.log.WithError(report.Err).Error("collection audit failed")
		metrics.RecordAudit(0, report.Err)
	} else {
		for _, f := range report.Findings {
			s.log.WithField("record", f.Index).
				WithField("field", f.Field).
				Warn(f.Reason)
		}
		s.log.WithField("invalid_records", len(report.Findings)).Info("collection audit completed")
		metrics.RecordAudit(len(report.Findings), nil)
	}

	s.mu.Lock()
	s.last = report
	s.hasLast = true
	s.mu.Unlock()
	return report
}

// LastReport returns the most recent run, if any.
func (s *Service) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// allValidation reports whether err consists only of validation findings.
func allValidation(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !allValidation(e) {
				return false
			}
		}
		return true
	}
	var verr *application.ValidationError
	return errors.As(err, &verr)
}
