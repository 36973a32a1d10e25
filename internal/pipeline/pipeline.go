// Package pipeline connects capture to enrichment, aggregation and
// persistence. A single worker goroutine consumes the packet queue so
// the capture loop never blocks on DNS or process lookups.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"netscope/internal/capture"
	"netscope/internal/logging"
	"netscope/internal/models"
	"netscope/internal/procmap"
	"netscope/internal/stats"
)

// Engine produces packet events. Start must return promptly, with the
// capture loop running in the background until Stop.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Uptime() time.Duration
}

// ProcessResolver maps a connection seen on the wire to the local
// process that owns it.
type ProcessResolver interface {
	Resolve(ctx context.Context, localPort uint16, remoteIP string, remotePort uint16) (procmap.Owner, bool)
}

// HostResolver turns a remote IP into a hostname and traffic category.
type HostResolver interface {
	ResolveAndCategorize(ctx context.Context, ip string) (hostname string, ok bool, category string)
}

// ConnectionStore persists enriched connection records.
type ConnectionStore interface {
	InsertBatch(recs []models.Connection) error
}

// Monitor owns the capture-to-store pipeline. Populate the exported
// fields, then call Start.
type Monitor struct {
	Engine    Engine
	Queue     *capture.Queue
	Processes ProcessResolver
	Hosts     HostResolver
	Stats     *stats.Aggregator
	Store     ConnectionStore
	BatchSize int
	Logger    *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	processed   atomic.Uint64
	storeErrors atomic.Uint64
	pending     atomic.Int64
}

// Status is a point-in-time view of pipeline health.
type Status struct {
	Running     bool
	Uptime      time.Duration
	QueueDepth  int
	Dropped     uint64
	Processed   uint64
	Pending     int
	StoreErrors uint64
}

// Start launches the capture engine and the worker. Calling Start on a
// running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	m.mu.Unlock()

	if err := m.Engine.Start(runCtx); err != nil {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}

	go m.run(runCtx, m.done)
	m.Logger.Info("pipeline started", logging.BatchSize(m.BatchSize))
	return nil
}

// Stop halts capture, drains whatever the queue still holds and
// flushes the final batch. The worker gets a bounded grace period so
// shutdown cannot hang on a stuck resolver.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	m.Engine.Stop()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		m.Logger.Warn("pipeline worker did not drain in time")
	}
	m.Logger.Info("pipeline stopped",
		zap.Uint64("processed", m.processed.Load()),
		logging.Dropped(m.Queue.Dropped()))
}

// Status reports pipeline counters for the status log and the API.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return Status{
		Running:     running,
		Uptime:      m.Engine.Uptime(),
		QueueDepth:  m.Queue.Depth(),
		Dropped:     m.Queue.Dropped(),
		Processed:   m.processed.Load(),
		Pending:     int(m.pending.Load()),
		StoreErrors: m.storeErrors.Load(),
	}
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	batch := make([]models.Connection, 0, m.BatchSize)
	for {
		select {
		case <-ctx.Done():
			m.drain(ctx, &batch)
			m.flush(&batch)
			return
		case ev := <-m.Queue.Events():
			m.handle(ctx, ev, &batch)
		}
	}
}

// drain consumes events still buffered at shutdown. Enrichment runs
// with the canceled context, so cached lookups still apply but no new
// DNS or lsof calls are made.
func (m *Monitor) drain(ctx context.Context, batch *[]models.Connection) {
	for {
		select {
		case ev := <-m.Queue.Events():
			m.handle(ctx, ev, batch)
		default:
			return
		}
	}
}

// handle enriches one event and buffers it for persistence. A panic in
// any enrichment stage loses that one packet, not the worker.
func (m *Monitor) handle(ctx context.Context, ev models.PacketEvent, batch *[]models.Connection) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("panic while processing packet",
				zap.Any("panic", r),
				logging.DstIP(ev.DstIP))
		}
	}()

	rec := m.enrich(ctx, ev)
	m.Stats.Record(rec)
	m.processed.Add(1)

	*batch = append(*batch, rec)
	m.pending.Store(int64(len(*batch)))
	if len(*batch) >= m.BatchSize {
		m.flush(batch)
	}
}

func (m *Monitor) enrich(ctx context.Context, ev models.PacketEvent) models.Connection {
	rec := models.Connection{
		Timestamp: ev.Timestamp,
		AppName:   models.UnknownApp,
		SrcIP:     ev.SrcIP,
		DstIP:     ev.DstIP,
		Category:  models.OtherCategory,
		Protocol:  ev.Protocol,
		SrcPort:   ev.SrcPort,
		DstPort:   ev.DstPort,
		Size:      ev.Size,
	}

	if owner, ok := m.Processes.Resolve(ctx, ev.SrcPort, ev.DstIP, ev.DstPort); ok {
		rec.AppName = procmap.AppName(owner.Name)
		pid := owner.PID
		rec.PID = &pid
	}

	// Local destinations never hit the resolver.
	if models.IsLocalIP(ev.DstIP) {
		hostname := models.LocalHostname
		rec.DestHostname = &hostname
		rec.Category = models.LocalCategory
		return rec
	}

	if hostname, ok, category := m.Hosts.ResolveAndCategorize(ctx, ev.DstIP); ok {
		rec.DestHostname = &hostname
		rec.Category = category
	}
	return rec
}

// flush writes the batch. On failure the batch is kept and retried on
// the next flush, so a transient database error drops nothing.
func (m *Monitor) flush(batch *[]models.Connection) {
	if len(*batch) == 0 {
		return
	}
	if err := m.Store.InsertBatch(*batch); err != nil {
		m.storeErrors.Add(1)
		m.Logger.Warn("batch insert failed",
			logging.Count(len(*batch)),
			zap.Error(err))
		return
	}
	m.Logger.Debug("batch flushed", logging.Count(len(*batch)))
	*batch = (*batch)[:0]
	m.pending.Store(0)
}
