package eventcore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/eventcore/pkg/eventcore/audit"
	"github.com/randalmurphal/eventcore/pkg/eventcore/bus"
	"github.com/randalmurphal/eventcore/pkg/eventcore/observability"
	"github.com/randalmurphal/eventcore/pkg/eventcore/schema"
)

// Default ingestor settings.
const (
	DefaultDrainDelay            = 100 * time.Millisecond
	DefaultNudgeInterval         = 5 * time.Second
	DefaultBacklogThreshold      = 100
	DefaultFailureRatioThreshold = 0.10
)

// Subscription is an active subscription to the ingestor's broadcast.
type Subscription = bus.Subscription[*Envelope]

// IngestorConfig configures an Ingestor.
type IngestorConfig struct {
	// Schemas validates incoming events per source. Defaults to the
	// built-in source contracts.
	Schemas *schema.Registry

	// Audit receives event lifecycle records (best-effort, optional).
	Audit audit.Sink

	// Logger for structured logging (optional).
	Logger *slog.Logger

	// Metrics records ingest outcomes. Defaults to NoopMetrics.
	Metrics observability.MetricsRecorder

	// DrainDelay is the fixed pause between drained events, a crude
	// admission-control mechanism. Default: 100ms.
	DrainDelay time.Duration

	// NudgeInterval is how often the drain loop re-checks a non-empty
	// queue, covering any missed wake-up. Default: 5s.
	NudgeInterval time.Duration

	// BacklogThreshold is the queue length above which health reports
	// unhealthy. Default: 100.
	BacklogThreshold int

	// FailureRatioThreshold is the failed/processed ratio above which
	// health reports unhealthy. Default: 0.10.
	FailureRatioThreshold float64
}

// IngestResult is returned synchronously from Ingest. Position is the
// queue length after the event was appended, giving the caller backlog
// visibility without blocking on processing.
type IngestResult struct {
	EventID  string `json:"event_id"`
	Status   string `json:"status"`
	Position int    `json:"position"`
}

// IngestStats is a snapshot of ingestion counters.
type IngestStats struct {
	Received    int64            `json:"received"`
	Processed   int64            `json:"processed"`
	Failed      int64            `json:"failed"`
	ByType      map[string]int64 `json:"by_type"`
	BySource    map[string]int64 `json:"by_source"`
	QueueLength int              `json:"queue_length"`
	Processing  bool             `json:"processing"`
}

// IngestorHealth is the ingestor's health report. Status flips to
// "unhealthy" when the backlog exceeds the threshold or the failure ratio
// exceeds its threshold.
type IngestorHealth struct {
	Status string      `json:"status"`
	Queue  int         `json:"queue"`
	Stats  IngestStats `json:"stats"`
}

// Ingestor is the pipeline entry point. It validates, timestamps, audits,
// and queues incoming events, then broadcasts them in strict FIFO order
// from a single drain loop. Construct one per process at application start
// and pass it by reference; call Start before ingesting and Close on
// shutdown.
type Ingestor struct {
	cfg IngestorConfig

	queue *fifoQueue
	bus   *bus.Bus[*Envelope]

	processing atomic.Bool
	wake       chan struct{}
	done       chan struct{}
	started    atomic.Bool
	closed     atomic.Bool
	wg         sync.WaitGroup

	received  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	countMu  sync.Mutex
	byType   map[string]int64
	bySource map[string]int64
}

// NewIngestor creates an ingestor with defaults applied.
func NewIngestor(cfg IngestorConfig) *Ingestor {
	if cfg.Schemas == nil {
		cfg.Schemas = schema.Builtin()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.DrainDelay <= 0 {
		cfg.DrainDelay = DefaultDrainDelay
	}
	if cfg.NudgeInterval <= 0 {
		cfg.NudgeInterval = DefaultNudgeInterval
	}
	if cfg.BacklogThreshold <= 0 {
		cfg.BacklogThreshold = DefaultBacklogThreshold
	}
	if cfg.FailureRatioThreshold <= 0 {
		cfg.FailureRatioThreshold = DefaultFailureRatioThreshold
	}

	ing := &Ingestor{
		cfg:      cfg,
		queue:    &fifoQueue{},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		byType:   make(map[string]int64),
		bySource: make(map[string]int64),
	}
	ing.bus = bus.New[*Envelope](bus.Config{
		OnError: func(topic string, _ int64, err error) {
			if cfg.Logger != nil {
				cfg.Logger.Error("subscriber error",
					slog.String("event_type", topic),
					slog.String("error", err.Error()),
				)
			}
		},
	})
	return ing
}

// Start launches the drain loop. It is safe to call once; subsequent calls
// and calls after Close are no-ops.
func (i *Ingestor) Start() {
	if i.closed.Load() {
		return
	}
	if !i.started.CompareAndSwap(false, true) {
		return
	}
	i.wg.Add(1)
	go i.run()
}

// Close stops the drain loop and shuts down the broadcast bus. Queued but
// undrained events remain in "received" state. Safe to call concurrently;
// only the first call closes anything.
func (i *Ingestor) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}
	if i.started.Load() {
		close(i.done)
		i.wg.Wait()
	}
	return i.bus.Close()
}

// Ingest validates and queues one raw event. On validation failure the
// error is returned synchronously and the event is never queued. The audit
// "received" write is best-effort: its failure is logged and otherwise
// ignored, keeping pipeline liveness decoupled from audit-store
// availability.
func (i *Ingestor) Ingest(raw RawEvent) (IngestResult, error) {
	evt := newEnvelope(raw, time.Now())

	if err := i.validate(evt); err != nil {
		observability.LogValidationReject(i.cfg.Logger, evt.Type, evt.Source, err)
		return IngestResult{}, err
	}

	ctx := context.Background()
	if i.cfg.Audit != nil {
		rec := audit.EventRecord{
			EventID:   evt.ID,
			Type:      evt.Type,
			Source:    evt.Source,
			Entity:    evt.Entity,
			Status:    string(StatusReceived),
			Data:      evt.Data,
			Timestamp: evt.Timestamp,
		}
		if err := i.cfg.Audit.InsertEvent(ctx, rec); err != nil {
			observability.LogAuditError(i.cfg.Logger, evt.ID, "insert_event", err)
		}
	}

	position := i.queue.push(evt)

	i.received.Add(1)
	i.countMu.Lock()
	i.byType[evt.Type]++
	i.bySource[evt.Source]++
	i.countMu.Unlock()

	i.cfg.Metrics.RecordIngest(ctx, evt.Source, evt.Type)
	i.cfg.Metrics.RecordQueueDepth(ctx, int64(position))
	observability.LogIngest(i.cfg.Logger, evt.ID, evt.Type, evt.Source, position)

	// Non-blocking wake; a pending signal already covers this push.
	select {
	case i.wake <- struct{}{}:
	default:
	}

	return IngestResult{EventID: evt.ID, Status: "queued", Position: position}, nil
}

// validate applies top-level presence checks and the source contract.
func (i *Ingestor) validate(evt *Envelope) error {
	if evt.Type == "" {
		return &schema.ValidationError{Source: evt.Source, Field: "type", Message: "required field missing"}
	}
	if evt.Source == "" {
		return &schema.ValidationError{Source: evt.Source, Field: "source", Message: "required field missing"}
	}
	if evt.Entity == "" {
		return &schema.ValidationError{Source: evt.Source, Field: "entity", Message: "required field missing"}
	}
	if evt.Data == nil {
		return &schema.ValidationError{Source: evt.Source, Field: "data", Message: "required field missing"}
	}
	return i.cfg.Schemas.ForSource(evt.Source).Validate(evt.Type, evt.Data)
}

// Subscribe registers a handler for specific event types.
func (i *Ingestor) Subscribe(types []string, h bus.Handler[*Envelope]) *Subscription {
	return i.bus.Subscribe(types, h)
}

// SubscribeAll registers a handler for every event type.
func (i *Ingestor) SubscribeAll(h bus.Handler[*Envelope]) *Subscription {
	return i.bus.SubscribeAll(h)
}

// run is the drain loop's outer shell: it waits for a wake signal or the
// periodic nudge, then drains whatever is queued.
func (i *Ingestor) run() {
	defer i.wg.Done()

	ticker := time.NewTicker(i.cfg.NudgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.done:
			return
		case <-i.wake:
		case <-ticker.C:
		}
		i.drain()
	}
}

// drain pops and broadcasts queued events until the queue is empty. The
// processing flag guards against re-entrancy; item N+1 is not dequeued
// until item N's subscriber chain has fully settled.
func (i *Ingestor) drain() {
	if !i.processing.CompareAndSwap(false, true) {
		return
	}
	defer i.processing.Store(false)

	for {
		select {
		case <-i.done:
			return
		default:
		}

		evt, ok := i.queue.pop()
		if !ok {
			return
		}

		i.dispatch(evt)

		// Fixed inter-event delay as crude admission control.
		select {
		case <-i.done:
			return
		case <-time.After(i.cfg.DrainDelay):
		}
	}
}

// dispatch broadcasts one envelope and records its terminal status. A
// poisoned event is caught here and does not halt the loop.
func (i *Ingestor) dispatch(evt *Envelope) {
	ctx := context.Background()
	evt.advance(StatusProcessing)

	err := i.bus.Publish(ctx, evt.Type, evt)

	fields := map[string]any{}
	if err != nil {
		evt.advance(StatusFailed)
		i.failed.Add(1)
		fields["status"] = string(StatusFailed)
		fields["error"] = err.Error()
	} else {
		evt.advance(StatusProcessed)
		i.processed.Add(1)
		fields["status"] = string(StatusProcessed)
	}

	if i.cfg.Audit != nil {
		if auditErr := i.cfg.Audit.UpdateEvent(ctx, evt.ID, fields); auditErr != nil {
			observability.LogAuditError(i.cfg.Logger, evt.ID, "update_event", auditErr)
		}
	}
	i.cfg.Metrics.RecordQueueDepth(ctx, int64(i.queue.len()))
}

// Stats returns a snapshot of ingestion counters.
func (i *Ingestor) Stats() IngestStats {
	i.countMu.Lock()
	byType := make(map[string]int64, len(i.byType))
	for k, v := range i.byType {
		byType[k] = v
	}
	bySource := make(map[string]int64, len(i.bySource))
	for k, v := range i.bySource {
		bySource[k] = v
	}
	i.countMu.Unlock()

	return IngestStats{
		Received:    i.received.Load(),
		Processed:   i.processed.Load(),
		Failed:      i.failed.Load(),
		ByType:      byType,
		BySource:    bySource,
		QueueLength: i.queue.len(),
		Processing:  i.processing.Load(),
	}
}

// Health reports the ingestor's own backlog and failure-ratio health.
func (i *Ingestor) Health() IngestorHealth {
	stats := i.Stats()

	status := "healthy"
	processed := stats.Processed
	if processed < 1 {
		processed = 1
	}
	ratio := float64(stats.Failed) / float64(processed)
	if stats.QueueLength > i.cfg.BacklogThreshold || ratio > i.cfg.FailureRatioThreshold {
		status = "unhealthy"
	}

	return IngestorHealth{
		Status: status,
		Queue:  stats.QueueLength,
		Stats:  stats,
	}
}
