// Package scheduler runs the fetch pipeline on a cron schedule for the
// watch command.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Start registers job under the cron spec and begins running it. The job
// also fires once immediately so a fresh watch does not wait a full
// interval for its first data.
func (s *Scheduler) Start(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.cron.Start()
	go job()
	return nil
}

// Run blocks until ctx is cancelled, then stops the cron loop and waits
// for any in-flight job.
func (s *Scheduler) Run(ctx context.Context) {
	<-ctx.Done()
	log.Printf("scheduler: stopping")
	<-s.cron.Stop().Done()
}
