// Package stats maintains rolling in-memory traffic statistics.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"netscope/internal/config"
	"netscope/internal/models"
)

// AppStat is one application's cumulative usage.
type AppStat struct {
	AppName string
	Bytes   int64
	Packets int64
}

// CategoryStat is one category's cumulative usage.
type CategoryStat struct {
	Category string
	Bytes    int64
}

// BandwidthSample is one point of the rate history. Rate is the
// throughput since the previous sample; UploadRate and DownloadRate
// are cumulative averages over the whole uptime.
type BandwidthSample struct {
	Timestamp    time.Time
	Rate         float64
	UploadRate   float64
	DownloadRate float64
}

// Snapshot is the aggregate view at one instant.
type Snapshot struct {
	TotalPackets     int64
	TotalBandwidth   int64
	TotalUpload      int64
	TotalDownload    int64
	CurrentRate      float64
	ActiveApps       int
	Uptime           time.Duration
	PacketsPerSecond float64
}

// Aggregator folds enriched records into rolling statistics. A single
// mutex guards every structure; read methods copy data out so callers
// never see internal state.
type Aggregator struct {
	mu sync.Mutex

	recent    []models.Connection
	recentCap int

	appBytes   map[string]int64
	appPackets map[string]int64
	catBytes   map[string]int64

	history    []BandwidthSample
	historyCap int

	sampleEvery time.Duration
	lastSample  time.Time
	bytesSince  int64
	currentRate float64

	totalUpload   int64
	totalDownload int64
	totalPackets  int64

	// Source addresses confirmed local; entries are only ever added.
	localIPs map[string]struct{}

	startTime time.Time
	clock     Clock
}

// New builds an Aggregator. A nil clock selects the system clock.
func New(cfg config.AggregatorConfig, clock Clock) (*Aggregator, error) {
	interval, err := time.ParseDuration(cfg.SampleInterval)
	if err != nil {
		return nil, fmt.Errorf("sample interval: %w", err)
	}
	if cfg.RecentSize <= 0 {
		return nil, fmt.Errorf("recent_size must be positive, got %d", cfg.RecentSize)
	}
	if cfg.HistorySize <= 0 {
		return nil, fmt.Errorf("history_size must be positive, got %d", cfg.HistorySize)
	}
	if clock == nil {
		clock = systemClock{}
	}
	now := clock.Now()
	return &Aggregator{
		recentCap:   cfg.RecentSize,
		appBytes:    make(map[string]int64),
		appPackets:  make(map[string]int64),
		catBytes:    make(map[string]int64),
		historyCap:  cfg.HistorySize,
		sampleEvery: interval,
		lastSample:  now,
		localIPs:    make(map[string]struct{}),
		startTime:   now,
		clock:       clock,
	}, nil
}

// Record folds one enriched record into every statistic.
func (a *Aggregator) Record(rec models.Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = append(a.recent, rec)
	if len(a.recent) > a.recentCap {
		a.recent = a.recent[1:]
	}

	size := int64(rec.Size)
	a.appBytes[rec.AppName] += size
	a.appPackets[rec.AppName]++
	a.catBytes[rec.Category] += size
	a.totalPackets++

	if a.isOutgoing(rec.SrcIP) {
		a.totalUpload += size
	} else {
		a.totalDownload += size
	}

	a.bytesSince += size
	now := a.clock.Now()
	if elapsed := now.Sub(a.lastSample); elapsed >= a.sampleEvery {
		a.currentRate = float64(a.bytesSince) / elapsed.Seconds()
		sample := BandwidthSample{Timestamp: now, Rate: a.currentRate}
		if uptime := now.Sub(a.startTime).Seconds(); uptime > 0 {
			sample.UploadRate = float64(a.totalUpload) / uptime
			sample.DownloadRate = float64(a.totalDownload) / uptime
		}
		a.history = append(a.history, sample)
		if len(a.history) > a.historyCap {
			a.history = a.history[1:]
		}
		a.bytesSince = 0
		a.lastSample = now
	}
}

// isOutgoing reports whether the source address belongs to this host's
// network. Matches are remembered so traffic from an address already
// seen as local never flips direction. Callers hold a.mu.
func (a *Aggregator) isOutgoing(ip string) bool {
	if _, ok := a.localIPs[ip]; ok {
		return true
	}
	if models.IsLocalIP(ip) {
		a.localIPs[ip] = struct{}{}
		return true
	}
	return false
}

// Recent returns up to limit of the newest records, oldest first. A
// non-positive limit returns the whole window.
func (a *Aggregator) Recent(limit int) []models.Connection {
	a.mu.Lock()
	defer a.mu.Unlock()

	src := a.recent
	if limit > 0 && limit < len(src) {
		src = src[len(src)-limit:]
	}
	out := make([]models.Connection, len(src))
	copy(out, src)
	return out
}

// TopApps returns applications ordered by bytes descending, name
// ascending on ties. A non-positive limit returns all of them.
func (a *Aggregator) TopApps(limit int) []AppStat {
	a.mu.Lock()
	apps := make([]AppStat, 0, len(a.appBytes))
	for name, bytes := range a.appBytes {
		apps = append(apps, AppStat{AppName: name, Bytes: bytes, Packets: a.appPackets[name]})
	}
	a.mu.Unlock()

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Bytes != apps[j].Bytes {
			return apps[i].Bytes > apps[j].Bytes
		}
		return apps[i].AppName < apps[j].AppName
	})
	if limit > 0 && limit < len(apps) {
		apps = apps[:limit]
	}
	return apps
}

// ByCategory returns categories ordered by bytes descending, name
// ascending on ties.
func (a *Aggregator) ByCategory() []CategoryStat {
	a.mu.Lock()
	cats := make([]CategoryStat, 0, len(a.catBytes))
	for name, bytes := range a.catBytes {
		cats = append(cats, CategoryStat{Category: name, Bytes: bytes})
	}
	a.mu.Unlock()

	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Bytes != cats[j].Bytes {
			return cats[i].Bytes > cats[j].Bytes
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// BandwidthHistory returns a copy of the rate history, oldest first.
func (a *Aggregator) BandwidthHistory() []BandwidthSample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]BandwidthSample, len(a.history))
	copy(out, a.history)
	return out
}

// Current returns the aggregate snapshot.
func (a *Aggregator) Current() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	uptime := a.clock.Now().Sub(a.startTime)
	s := Snapshot{
		TotalPackets:   a.totalPackets,
		TotalBandwidth: a.totalUpload + a.totalDownload,
		TotalUpload:    a.totalUpload,
		TotalDownload:  a.totalDownload,
		CurrentRate:    a.currentRate,
		ActiveApps:     len(a.appBytes),
		Uptime:         uptime,
	}
	if secs := uptime.Seconds(); secs > 0 {
		s.PacketsPerSecond = float64(a.totalPackets) / secs
	}
	return s
}

// AppDetail returns the cumulative usage for one application. Unknown
// names yield zero counts.
func (a *Aggregator) AppDetail(name string) AppStat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AppStat{
		AppName: name,
		Bytes:   a.appBytes[name],
		Packets: a.appPackets[name],
	}
}

// Reset clears every statistic and restarts the uptime clock.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recent = nil
	a.appBytes = make(map[string]int64)
	a.appPackets = make(map[string]int64)
	a.catBytes = make(map[string]int64)
	a.history = nil
	a.bytesSince = 0
	a.currentRate = 0
	a.totalUpload = 0
	a.totalDownload = 0
	a.totalPackets = 0
	now := a.clock.Now()
	a.startTime = now
	a.lastSample = now
}

// Summary returns a human-readable digest, used for the shutdown
// report.
func (a *Aggregator) Summary() string {
	s := a.Current()
	var b strings.Builder
	fmt.Fprintf(&b, "uptime: %s\n", s.Uptime.Round(time.Second))
	fmt.Fprintf(&b, "packets: %d (%.1f/s)\n", s.TotalPackets, s.PacketsPerSecond)
	fmt.Fprintf(&b, "bandwidth: %s (upload %s, download %s)\n",
		humanize.IBytes(uint64(s.TotalBandwidth)),
		humanize.IBytes(uint64(s.TotalUpload)),
		humanize.IBytes(uint64(s.TotalDownload)))
	fmt.Fprintf(&b, "current rate: %s/s\n", humanize.IBytes(uint64(s.CurrentRate)))
	fmt.Fprintf(&b, "active apps: %d", s.ActiveApps)
	return b.String()
}
