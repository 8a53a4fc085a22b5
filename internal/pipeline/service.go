package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/cuiles/internal/core"
	"github.com/JonMunkholm/cuiles/internal/logging"
	"github.com/google/uuid"
)

// DefaultRetention is how long finished jobs stay queryable.
const DefaultRetention = 5 * time.Minute

// Service runs conversions as background jobs.
type Service struct {
	opts      Options
	limiter   *Limiter
	retention time.Duration

	mu   sync.RWMutex
	jobs map[string]*job
}

type job struct {
	id   string
	req  Request
	done chan struct{}

	mu        sync.Mutex
	progress  Progress
	result    *Result
	listeners []chan Progress
}

// NewService creates a job service. A nil limiter allows one run at a time.
// Request paths are confined to opts.SourceDir and opts.DestDir, which
// default to the working directory.
func NewService(opts Options, limiter *Limiter, retention time.Duration) *Service {
	if opts.SourceDir == "" {
		opts.SourceDir = "."
	}
	if opts.DestDir == "" {
		opts.DestDir = "."
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrentJobs, DefaultMaxWait)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		opts:      opts,
		limiter:   limiter,
		retention: retention,
		jobs:      make(map[string]*job),
	}
}

// Start validates and confines req, waits for a free slot and begins the
// conversion in the background. The run is detached from ctx cancellation
// and cannot be cancelled once started.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	req, err := s.opts.Confine(req)
	if err != nil {
		return "", err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	id := uuid.New().String()
	j := &job{
		id:   id,
		req:  req,
		done: make(chan struct{}),
		progress: Progress{
			JobID: id,
			Phase: PhaseStarting,
		},
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	runCtx := logging.WithJobID(context.WithoutCancel(ctx), id)
	go s.process(runCtx, j)

	return id, nil
}

func (s *Service) process(ctx context.Context, j *job) {
	logger := logging.FromContext(ctx)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("conversion panicked: %v", p)
			logger.Error("conversion panicked", "panic", p)
			j.finish(&Result{
				JobID:     j.id,
				Error:     err.Error(),
				ErrorCode: core.MapError(err).Code,
				Duration:  time.Since(start),
			}, Progress{JobID: j.id, Phase: PhaseFailed, Error: err.Error()})
		}
		s.limiter.Release()
		s.cleanup(j.id)
	}()

	logger.Info("conversion started",
		"cuiles_source", j.req.CuilesSource,
		"periodos_source", j.req.PeriodosSource,
		"destination", j.req.Destination,
	)

	var last Progress
	res, _ := Run(ctx, s.opts, j.req, func(p Progress) {
		p.JobID = j.id
		last = p
		j.update(p)
	})
	res.JobID = j.id
	j.finish(res, last)
}

// update records p and fans it out to listeners. Slow listeners miss
// intermediate updates; terminal updates are delivered by finish.
func (j *job) update(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progress = p
	if p.Phase.Done() {
		return
	}
	for _, ch := range j.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

// finish stores the result, closes listeners and marks the job done.
func (j *job) finish(res *Result, final Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()

	select {
	case <-j.done:
		return
	default:
	}

	j.result = res
	if final.Phase.Done() {
		j.progress = final
	}
	for _, ch := range j.listeners {
		select {
		case ch <- j.progress:
		default:
			// Full: drop the oldest update so the terminal one always arrives.
			select {
			case <-ch:
			default:
			}
			ch <- j.progress
		}
		close(ch)
	}
	j.listeners = nil
	close(j.done)
}

func (s *Service) cleanup(id string) {
	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.jobs, id)
		s.mu.Unlock()
	})
}

func (s *Service) get(id string) (*job, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return j, nil
}

// Subscribe returns a channel of progress updates for a job. The current
// progress is sent first; the channel closes when the job finishes.
func (s *Service) Subscribe(id string) (<-chan Progress, error) {
	j, err := s.get(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan Progress, 16)

	j.mu.Lock()
	defer j.mu.Unlock()

	ch <- j.progress
	select {
	case <-j.done:
		close(ch)
	default:
		j.listeners = append(j.listeners, ch)
	}
	return ch, nil
}

// Progress returns the latest progress without blocking.
func (s *Service) Progress(id string) (Progress, error) {
	j, err := s.get(id)
	if err != nil {
		return Progress{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress, nil
}

// Result blocks until the job finishes or ctx ends.
func (s *Service) Result(ctx context.Context, id string) (*Result, error) {
	j, err := s.get(id)
	if err != nil {
		return nil, err
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, nil
}

// LimiterStatus reports slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Drain waits for running jobs to finish, for graceful shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
