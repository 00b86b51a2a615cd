package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Arletteportilla/vivero-alerts/metrics"
)

// RetryPolicy controls in-tick retries. The default (zero) policy runs
// a job once per tick; a failed tick is simply retried at the next
// scheduled tick.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Job is one recurring unit of work. Queue groups jobs onto a shared
// worker set; jobs on different queues run concurrently, while a
// single job never overlaps itself from one tick to the next.
type Job struct {
	Name        string
	Queue       string
	Every       time.Duration
	Timeout     time.Duration
	SoftTimeout time.Duration
	Retry       RetryPolicy
	Run         func(ctx context.Context) error
}

type scheduledJob struct {
	Job
	running atomic.Bool
}

// Scheduler runs registered jobs on fixed cadences. One job failing or
// panicking is logged and does not disturb the other jobs or the loop.
type Scheduler struct {
	log    *zap.Logger
	jobs   []*scheduledJob
	queues map[string]chan *scheduledJob
	wg     sync.WaitGroup
}

const queueDepth = 16

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		log:    log,
		queues: make(map[string]chan *scheduledJob),
	}
}

func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: cadence must be positive", job.Name)
	}
	if job.Queue == "" {
		job.Queue = "default"
	}
	s.jobs = append(s.jobs, &scheduledJob{Job: job})
	if _, ok := s.queues[job.Queue]; !ok {
		s.queues[job.Queue] = make(chan *scheduledJob, queueDepth)
	}
	return nil
}

// Start launches one dispatcher per job and one worker per queue, and
// blocks until ctx is cancelled and all running jobs have finished.
func (s *Scheduler) Start(ctx context.Context) {
	for name, ch := range s.queues {
		s.wg.Add(1)
		go s.worker(ctx, name, ch)
	}
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.dispatch(ctx, job)
	}
	s.wg.Wait()
}

func (s *Scheduler) dispatch(ctx context.Context, job *scheduledJob) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if job.running.Load() {
				metrics.SchedulerJobSkippedTotal.WithLabelValues(job.Name).Inc()
				s.log.Warn("tick skipped, previous run still executing", zap.String("job", job.Name))
				continue
			}
			select {
			case s.queues[job.Queue] <- job:
			default:
				// Queue full. Known gap: there is no backpressure
				// control beyond dropping the tick.
				metrics.SchedulerJobSkippedTotal.WithLabelValues(job.Name).Inc()
				s.log.Warn("tick dropped, queue full",
					zap.String("job", job.Name),
					zap.String("queue", job.Queue),
				)
			}
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, queue string, ch chan *scheduledJob) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-ch:
			if !job.running.CompareAndSwap(false, true) {
				continue
			}
			s.execute(ctx, job)
			job.running.Store(false)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *scheduledJob) {
	attempts := job.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.runOnce(ctx, job)
		if err == nil {
			return
		}
		s.log.Error("job failed",
			zap.String("job", job.Name),
			zap.String("queue", job.Queue),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(job.Retry.Backoff):
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job *scheduledJob) (err error) {
	runCtx := ctx
	cancel := func() {}
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
	}
	defer cancel()

	if job.SoftTimeout > 0 && (job.Timeout == 0 || job.SoftTimeout < job.Timeout) {
		softTimer := time.AfterFunc(job.SoftTimeout, func() {
			s.log.Warn("job exceeded soft timeout",
				zap.String("job", job.Name),
				zap.Duration("soft_timeout", job.SoftTimeout),
			)
		})
		defer softTimer.Stop()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	timer := time.Now()
	err = job.Run(runCtx)
	metrics.SchedulerJobDuration.WithLabelValues(job.Name).Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.SchedulerJobRunsTotal.WithLabelValues(job.Name, "failed").Inc()
		return err
	}
	metrics.SchedulerJobRunsTotal.WithLabelValues(job.Name, "ok").Inc()
	return nil
}
