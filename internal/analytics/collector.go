package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/quran-web/internal/backend"
)

const (
	defaultQueueSize  = 256
	defaultBatchSize  = 20
	defaultFlushEvery = 5 * time.Second
	batchEndpoint     = "v1/batch"
)

// ErrCollectorClosed is returned by Close when called twice.
var ErrCollectorClosed = errors.New("analytics: collector closed")

// Event is a single click forwarded to the collector.
type Event struct {
	ID         string            `json:"messageId"`
	Type       string            `json:"type"`
	Name       string            `json:"event"`
	Timestamp  time.Time         `json:"timestamp"`
	Properties map[string]string `json:"properties,omitempty"`
}

type batchPayload struct {
	Batch    []Event   `json:"batch"`
	WriteKey string    `json:"writeKey,omitempty"`
	SentAt   time.Time `json:"sentAt"`
}

// Poster is the subset of backend.Client used to deliver batches.
type Poster interface {
	PostJSON(ctx context.Context, endpoint, token string, payload, out any) error
}

// CollectorDeps configures a Collector.
type CollectorDeps struct {
	Client      Poster
	WriteKey    string
	QueueSize   int
	BatchSize   int
	FlushEvery  time.Duration
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
}

// Collector forwards clicks to an HTTP collector from a single background
// worker. Events are dropped when the queue is full.
type Collector struct {
	client     Poster
	writeKey   string
	batchSize  int
	flushEvery time.Duration
	clock      func() time.Time
	newID      func() string
	logger     *zap.Logger

	// mu orders sends against Close: once closing is set under the write
	// lock, no event can enter the queue behind the final drain.
	mu      sync.RWMutex
	closing bool
	dropped atomic.Int64

	queue  chan Event
	done   chan struct{}
	closed chan struct{}
}

// NewCollector starts the delivery worker.
func NewCollector(deps CollectorDeps) (*Collector, error) {
	if deps.Client == nil {
		return nil, errors.New("analytics: collector client is required")
	}
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushEvery := deps.FlushEvery
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		client:     deps.Client,
		writeKey:   deps.WriteKey,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		clock:      func() time.Time { return clock().UTC() },
		newID:      idGen,
		logger:     logger.Named("analytics"),
		queue:      make(chan Event, queueSize),
		done:       make(chan struct{}),
		closed:     make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// NewHTTPCollector delivers batches to collectorURL.
func NewHTTPCollector(collectorURL, writeKey string, queueSize int, timeout time.Duration, logger *zap.Logger) (*Collector, error) {
	client, err := backend.NewTimeoutClient("analytics", collectorURL, timeout)
	if err != nil {
		return nil, err
	}
	return NewCollector(CollectorDeps{Client: client, WriteKey: writeKey, QueueSize: queueSize, Logger: logger})
}

// LogButtonClick implements Logger.
func (c *Collector) LogButtonClick(ctx context.Context, name string) {
	ev := Event{ID: c.newID(), Type: "track", Name: name, Timestamp: c.clock()}
	if rid := middleware.GetReqID(ctx); rid != "" {
		ev.Properties = map[string]string{"requestId": rid}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closing {
		c.dropped.Add(1)
		return
	}
	select {
	case c.queue <- ev:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics queue full, dropping event", zap.String("event", name))
	}
}

// Dropped counts events refused because the queue was full or the collector
// was closed.
func (c *Collector) Dropped() int64 { return c.dropped.Load() }

// Close stops accepting events and delivers what is queued, waiting at most
// until ctx is done.
func (c *Collector) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrCollectorClosed
	}
	c.closing = true
	close(c.done)
	c.mu.Unlock()

	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) run() {
	defer close(c.closed)
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()

	batch := make([]Event, 0, c.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		c.send(batch)
		batch = make([]Event, 0, c.batchSize)
	}

	for {
		select {
		case ev := <-c.queue:
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-c.done:
			for {
				select {
				case ev := <-c.queue:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (c *Collector) send(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	payload := batchPayload{Batch: batch, WriteKey: c.writeKey, SentAt: c.clock()}
	if err := c.client.PostJSON(ctx, batchEndpoint, "", payload, nil); err != nil {
		c.logger.Warn("analytics delivery failed", zap.Int("events", len(batch)), zap.Error(fmt.Errorf("analytics: send batch: %w", err)))
	}
}
