package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// Job is a periodic task managed by the scheduler.
type Job interface {
	Run(ctx context.Context) error
	Interval() time.Duration
}

// Scheduler runs registered jobs on their intervals. Every job runs in
// singleton mode: if a run is still in progress when the next fire time
// arrives, the overlapping run is rescheduled, never executed concurrently.
// The reminder tick depends on this to keep its per-day write invariant
// without extra locking.
type Scheduler struct {
	scheduler  gocron.Scheduler
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	jobs       map[string]Job
	handles    map[string]gocron.Job
	running    bool
}

// NewScheduler creates a new job scheduler evaluating in the given timezone
func NewScheduler(loc *time.Location) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:  scheduler,
		instanceID: uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]Job),
		handles:    make(map[string]gocron.Job),
	}, nil
}

// Register adds a job to the scheduler
func (s *Scheduler) Register(name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.scheduler.NewJob(
		gocron.DurationJob(job.Interval()),
		gocron.NewTask(func() {
			startTime := time.Now()
			if err := job.Run(s.ctx); err != nil {
				log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", name, err)
				return
			}
			if elapsed := time.Since(startTime); elapsed > job.Interval()/2 {
				log.Printf("⚠️  [SCHEDULER] Job '%s' took %v, more than half its %v interval", name, elapsed, job.Interval())
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.handles[name] = handle
	log.Printf("✅ [SCHEDULER] Registered job: %s (every %v)", name, job.Interval())
	return nil
}

// Start begins running all registered jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Started with %d jobs (instance %s)", len(s.jobs), s.instanceID)
}

// Stop gracefully stops all jobs, waiting for in-flight runs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	log.Println("✅ [SCHEDULER] Job scheduler stopped")
	return nil
}

// RunNow immediately runs a specific job (useful for testing)
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %q not found", name)
	}

	log.Printf("🚀 [SCHEDULER] Running job '%s' immediately", name)
	return job.Run(s.ctx)
}

// Status describes one registered job.
type Status struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	NextRunAt time.Time `json:"next_run_at"`
}

// GetStatus returns the status of all registered jobs
func (s *Scheduler) GetStatus() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]Status, 0, len(s.jobs))
	for name, job := range s.jobs {
		status := Status{
			Name:     name,
			Interval: job.Interval().String(),
		}
		if handle, ok := s.handles[name]; ok {
			if next, err := handle.NextRun(); err == nil {
				status.NextRunAt = next
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
