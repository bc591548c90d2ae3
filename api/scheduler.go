/*
scheduler.go - Background status refresh and monthly generation

PURPOSE:
  Keeps check statuses current (overdue, due soon) and, when enabled,
  generates the current month's checks without an operator click.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Generation is idempotent, so every tick may safely re-run it

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - AutoGenerate:  Generate the current month's checks (default: false)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(svc, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/compliance"
)

// Scheduler runs periodic maintenance against the service.
type Scheduler struct {
	Service       *compliance.Service
	CheckInterval time.Duration
	AutoGenerate  bool
	Enabled       bool

	log    *logrus.Entry
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(svc *compliance.Service, log *logrus.Entry) *Scheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		Service:       svc,
		CheckInterval: time.Hour,
		Enabled:       true,
		log:           log,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.log.WithFields(logrus.Fields{
		"interval":      s.CheckInterval.String(),
		"auto_generate": s.AutoGenerate,
	}).Info("scheduler started")
}

// Stop stops the scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.Tick(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.Tick(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Tick runs one maintenance pass.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.AutoGenerate {
		now := s.Service.Now()
		result, err := s.Service.GenerateForPeriod(ctx, now.Year(), now.Month())
		switch {
		case errors.Is(err, compliance.ErrPrecondition):
			s.log.WithError(err).Debug("skipping scheduled generation")
		case err != nil:
			s.log.WithError(err).Error("scheduled generation failed")
		case len(result.Created) > 0:
			s.log.WithField("created", len(result.Created)).Info("scheduled generation created checks")
		}
	}

	if _, err := s.Service.RefreshStatuses(ctx); err != nil {
		s.log.WithError(err).Error("status refresh failed")
	}
}
