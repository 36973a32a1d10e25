package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"go.uber.org/zap"

	"netscope/internal/logging"
	"netscope/internal/models"
)

// Config holds capture settings.
type Config struct {
	Interface   string
	Filter      string // BPF expression, empty for no filter
	SnapshotLen int32
	Promiscuous bool
}

// PCAPEngine captures packets from a live interface and pushes them
// into a Queue.
type PCAPEngine struct {
	cfg    Config
	queue  *Queue
	logger *zap.Logger

	mu      sync.Mutex
	handle  *pcap.Handle
	done    chan struct{}
	started time.Time
}

// NewPCAPEngine builds an engine that feeds queue.
func NewPCAPEngine(cfg Config, queue *Queue, logger *zap.Logger) *PCAPEngine {
	if cfg.SnapshotLen == 0 {
		cfg.SnapshotLen = 1600
	}
	return &PCAPEngine{cfg: cfg, queue: queue, logger: logger.Named("capture")}
}

// Start opens the interface and begins the capture loop. Opening a
// live handle normally requires elevated privileges; the error is
// returned so the caller can fail startup with a clear message.
func (e *PCAPEngine) Start(ctx context.Context) error {
	handle, err := pcap.OpenLive(e.cfg.Interface, e.cfg.SnapshotLen, e.cfg.Promiscuous, time.Second)
	if err != nil {
		return fmt.Errorf("open interface %s: %w", e.cfg.Interface, err)
	}
	if e.cfg.Filter != "" {
		if err := handle.SetBPFFilter(e.cfg.Filter); err != nil {
			handle.Close()
			return fmt.Errorf("set filter %q: %w", e.cfg.Filter, err)
		}
	}

	e.mu.Lock()
	e.handle = handle
	e.done = make(chan struct{})
	e.started = time.Now()
	done := e.done
	e.mu.Unlock()

	e.logger.Info("capture started",
		logging.Iface(e.cfg.Interface),
		logging.Filter(e.cfg.Filter))

	go e.loop(ctx, handle, done)
	return nil
}

// Stop ends the capture loop and closes the handle. done is closed
// before the handle so the loop can tell shutdown from a read error.
func (e *PCAPEngine) Stop() {
	e.mu.Lock()
	handle := e.handle
	done := e.done
	e.handle = nil
	e.done = nil
	e.mu.Unlock()

	if handle == nil {
		return
	}
	close(done)
	handle.Close()
	e.logger.Info("capture stopped", logging.Dropped(e.queue.Dropped()))
}

// Uptime returns how long the engine has been capturing, or zero when
// it has not started.
func (e *PCAPEngine) Uptime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started.IsZero() {
		return 0
	}
	return time.Since(e.started)
}

func (e *PCAPEngine) loop(ctx context.Context, handle *pcap.Handle, done chan struct{}) {
	src := gopacket.NewPacketSource(handle, handle.LinkType())
	src.DecodeOptions.Lazy = true
	src.DecodeOptions.NoCopy = true

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}

		pkt, err := src.NextPacket()
		if err != nil {
			if errors.Is(err, pcap.NextErrorTimeoutExpired) {
				continue
			}
			// Any other read error means the handle is gone, either
			// from Stop closing it or the interface disappearing.
			select {
			case <-done:
			case <-ctx.Done():
			default:
				e.logger.Warn("capture read failed", zap.Error(err))
			}
			return
		}

		if ev, ok := decodePacket(pkt); ok {
			e.queue.Push(ev)
		}
	}
}

// decodePacket extracts a PacketEvent from a decoded frame. Non-IP
// frames and IP protocols other than TCP and UDP are skipped.
func decodePacket(pkt gopacket.Packet) (models.PacketEvent, bool) {
	var ev models.PacketEvent

	meta := pkt.Metadata()
	ev.Timestamp = meta.Timestamp
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Size = meta.Length
	if ev.Size == 0 {
		ev.Size = len(pkt.Data())
	}

	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		ev.SrcIP = ip.SrcIP.String()
		ev.DstIP = ip.DstIP.String()
	} else if l := pkt.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		ev.SrcIP = ip.SrcIP.String()
		ev.DstIP = ip.DstIP.String()
	} else {
		return models.PacketEvent{}, false
	}

	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		ev.Protocol = "TCP"
		ev.SrcPort = uint16(tcp.SrcPort)
		ev.DstPort = uint16(tcp.DstPort)
	} else if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		ev.Protocol = "UDP"
		ev.SrcPort = uint16(udp.SrcPort)
		ev.DstPort = uint16(udp.DstPort)
	} else {
		return models.PacketEvent{}, false
	}

	return ev, true
}
