// Package procmap maps network connections to their owning processes.
package procmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"netscope/internal/config"
	"netscope/internal/logging"
)

// Owner identifies the process behind a connection.
type Owner struct {
	PID  int64
	Name string
}

// ConnKey identifies one direction of a connection in the snapshot
// table, from the point of view of this host.
type ConnKey struct {
	LocalPort  uint16
	RemoteIP   string
	RemotePort uint16
}

// Snapshot is one refresh of the OS connection table. ByPort holds the
// first owner seen per local port and backs the best-effort match when
// the exact key is absent.
type Snapshot struct {
	ByConn map[ConnKey]Owner
	ByPort map[uint16]Owner
}

// TableSource produces connection table snapshots.
type TableSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// PortLookupFunc is the last-resort lookup consulted when the snapshot
// has no entry for a local port.
type PortLookupFunc func(ctx context.Context, port uint16) (Owner, bool)

// Resolver resolves connections to owning processes from a
// periodically refreshed snapshot, with an external lookup fallback.
// The snapshot refreshes every refreshEvery calls, or immediately when
// it is empty.
type Resolver struct {
	mu    sync.Mutex
	table *Snapshot
	calls int

	refreshEvery int
	source       TableSource
	portLookup   PortLookupFunc
	logger       *zap.Logger
}

// New builds a Resolver. A nil source selects the gopsutil-backed
// connection table; a nil portLookup selects the lsof fallback with
// cfg's lookup timeout.
func New(cfg config.ProcessConfig, source TableSource, portLookup PortLookupFunc, logger *zap.Logger) (*Resolver, error) {
	if cfg.RefreshEvery <= 0 {
		return nil, fmt.Errorf("refresh_every must be positive, got %d", cfg.RefreshEvery)
	}
	timeout, err := time.ParseDuration(cfg.LookupTimeout)
	if err != nil {
		return nil, fmt.Errorf("lookup timeout: %w", err)
	}
	if source == nil {
		source = newGopsutilSource(cfg.CacheSize)
	}
	if portLookup == nil {
		portLookup = LsofLookup(timeout)
	}
	return &Resolver{
		refreshEvery: cfg.RefreshEvery,
		source:       source,
		portLookup:   portLookup,
		logger:       logger.Named("procmap"),
	}, nil
}

// Resolve finds the process owning the connection identified by the
// local port and remote endpoint. Match order: exact key, then any
// entry on the same local port, then the external fallback. The
// port-only match can misattribute when several processes share a
// local port.
func (r *Resolver) Resolve(ctx context.Context, localPort uint16, remoteIP string, remotePort uint16) (Owner, bool) {
	r.mu.Lock()
	r.calls++
	if r.calls >= r.refreshEvery {
		r.refresh(ctx)
		r.calls = 0
	}
	if r.table == nil || len(r.table.ByConn) == 0 {
		r.refresh(ctx)
	}

	var owner Owner
	var ok bool
	if r.table != nil {
		owner, ok = r.table.ByConn[ConnKey{LocalPort: localPort, RemoteIP: remoteIP, RemotePort: remotePort}]
		if !ok {
			owner, ok = r.table.ByPort[localPort]
		}
	}
	r.mu.Unlock()

	if ok {
		return owner, true
	}
	// The external tool is slow; never run it under the table lock.
	if r.portLookup == nil {
		return Owner{}, false
	}
	return r.portLookup(ctx, localPort)
}

// refresh replaces the snapshot. On failure the previous snapshot
// stays in place; running without privileges is expected to fail here
// and must not take the pipeline down. Callers hold r.mu.
func (r *Resolver) refresh(ctx context.Context) {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		r.logger.Debug("connection table refresh failed", zap.Error(err))
		return
	}
	r.table = snap
	r.logger.Debug("connection table refreshed", logging.Count(len(snap.ByConn)))
}
