package api

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

type OutboxConfig struct {
	BufferSize     int
	Workers        int
	HandoffTimeout time.Duration
	DeliverTimeout time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
	MaxAttempts    int
}

type outboxJob struct {
	event   domain.Event
	sink    Sink
	attempt int
}

// Outbox fans committed change events out to every sink on a fixed pool of
// workers. Publish never blocks longer than the handoff timeout; a saturated
// outbox drops the event with a warning. Workers may reorder events, so
// sinks that need publish order implement immediateSink instead.
type Outbox struct {
	cfg      OutboxConfig
	sinks    []Sink
	logger   *log.Logger
	jobs     chan outboxJob
	stopCh   chan struct{}
	workerWG sync.WaitGroup
	retryWG  sync.WaitGroup

	mu      sync.Mutex
	running bool
	closing bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	started   time.Time
}

func NewOutbox(cfg OutboxConfig, logger *log.Logger, sinks ...Sink) *Outbox {
	if logger == nil {
		panic("logger is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Outbox{
		cfg:     cfg,
		sinks:   sinks,
		logger:  logger,
		jobs:    make(chan outboxJob, cfg.BufferSize),
		stopCh:  make(chan struct{}),
		started: time.Now().UTC(),
	}
}

func (o *Outbox) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running || o.closing {
		return
	}
	o.running = true
	for i := 0; i < o.cfg.Workers; i++ {
		o.workerWG.Add(1)
		go o.worker(i)
	}
	o.logger.Infof("event outbox started, workers: %d, buffer: %d, handoff: %v, sinks: %v", o.cfg.Workers, o.cfg.BufferSize, o.cfg.HandoffTimeout, o.sinkNames())
}

// Shutdown cancels pending retries and waits for the workers to drain the
// buffered events.
func (o *Outbox) Shutdown() {
	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		return
	}
	o.closing = true
	close(o.stopCh)
	o.mu.Unlock()

	o.retryWG.Wait()
	close(o.jobs)
	o.workerWG.Wait()
}

func (o *Outbox) Publish(ev domain.Event) {
	o.published.Add(1)
	for _, sink := range o.sinks {
		if is, ok := sink.(immediateSink); ok && is.Immediate() {
			o.deliverNow(ev, sink)
			continue
		}
		if o.tryEnqueue(outboxJob{event: ev, sink: sink}) {
			continue
		}
		o.dropped.Add(1)
		o.logger.WithFields(log.Fields{
			"sink":   sink.Name(),
			"event":  ev.Type,
			"entity": ev.EntityID,
		}).Warn("event outbox saturated; dropping event")
	}
}

func (o *Outbox) deliverNow(ev domain.Event, sink Sink) {
	if err := sink.Deliver(context.Background(), ev); err != nil {
		o.failed.Add(1)
		o.logger.WithError(err).WithFields(log.Fields{
			"sink":   sink.Name(),
			"event":  ev.Type,
			"entity": ev.EntityID,
		}).Error("event delivery failed")
		return
	}
	o.delivered.Add(1)
}

func (o *Outbox) worker(id int) {
	defer o.workerWG.Done()
	for job := range o.jobs {
		o.deliver(job, id)
	}
}

func (o *Outbox) deliver(job outboxJob, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.DeliverTimeout)
	err := job.sink.Deliver(ctx, job.event)
	cancel()
	if err == nil {
		o.delivered.Add(1)
		return
	}

	job.attempt++
	entry := o.logger.WithError(err).WithFields(log.Fields{
		"sink":    job.sink.Name(),
		"event":   job.event.Type,
		"entity":  job.event.EntityID,
		"attempt": job.attempt,
		"worker":  workerID,
	})
	if job.attempt >= o.cfg.MaxAttempts {
		o.failed.Add(1)
		entry.Error("event delivery failed; giving up")
		return
	}
	entry.Warn("event delivery failed; retrying")
	o.scheduleRetry(job)
}

func (o *Outbox) scheduleRetry(job outboxJob) {
	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		o.failed.Add(1)
		return
	}
	o.retryWG.Add(1)
	o.mu.Unlock()

	delay := exponentialBackoff(job.attempt, o.cfg.RetryInitial, o.cfg.RetryMax)
	timer := time.NewTimer(delay)
	go func(j outboxJob) {
		defer o.retryWG.Done()
		defer timer.Stop()
		select {
		case <-timer.C:
			if !o.tryEnqueue(j) {
				o.failed.Add(1)
				o.logger.WithField("sink", j.sink.Name()).Warn("event outbox saturated; abandoning retry")
			}
		case <-o.stopCh:
			o.failed.Add(1)
		}
	}(job)
}

func exponentialBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		if initial <= 0 {
			return time.Second
		}
		return initial
	}
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.2 * backoff
	return time.Duration(backoff + (rand.Float64()-0.5)*2*jitter)
}

func (o *Outbox) sinkNames() []string {
	names := make([]string, 0, len(o.sinks))
	for _, s := range o.sinks {
		names = append(names, s.Name())
	}
	return names
}

type OutboxStats struct {
	Sinks     []string  `json:"sinks"`
	Buffered  int       `json:"buffered"`
	Published uint64    `json:"published"`
	Delivered uint64    `json:"delivered"`
	Dropped   uint64    `json:"dropped"`
	Failed    uint64    `json:"failed"`
	StartedAt time.Time `json:"startedAt"`
	DrainRate float64   `json:"drainRatePerSecond"`
}

func (o *Outbox) Stats() OutboxStats {
	delivered := o.delivered.Load()
	elapsed := time.Since(o.started)
	rps := 0.0
	if elapsed > 0 {
		rps = float64(delivered) / elapsed.Seconds()
	}
	return OutboxStats{
		Sinks:     o.sinkNames(),
		Buffered:  len(o.jobs),
		Published: o.published.Load(),
		Delivered: delivered,
		Dropped:   o.dropped.Load(),
		Failed:    o.failed.Load(),
		StartedAt: o.started,
		DrainRate: rps,
	}
}

// newEvent wraps a projection in an event envelope. Data is left empty when
// the payload cannot be encoded.
func newEvent(entityType, entityID, eventType string, payload any) domain.Event {
	ev := domain.Event{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Type:       eventType,
		Timestamp:  nextTimestamp(),
	}
	if payload != nil {
		if data, err := sonic.Marshal(payload); err == nil {
			ev.Data = data
		}
	}
	return ev
}
