package procmap

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// gopsutilSource reads the OS connection table via gopsutil. Reading
// other processes' sockets needs elevated privileges on most systems.
// Process names are kept in a bounded cache across refreshes so
// long-lived processes are not re-queried every snapshot; pid reuse can
// briefly attach a stale name. Snapshot runs under the resolver's lock,
// so the cache needs no locking of its own.
type gopsutilSource struct {
	names *simplelru.LRU[int32, string]
}

func newGopsutilSource(cacheSize int) *gopsutilSource {
	if cacheSize <= 0 {
		cacheSize = 500
	}
	names, _ := simplelru.NewLRU[int32, string](cacheSize, nil)
	return &gopsutilSource{names: names}
}

func (s *gopsutilSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ByConn: make(map[ConnKey]Owner, len(conns)),
		ByPort: make(map[uint16]Owner),
	}
	for _, c := range conns {
		// Listening sockets have no remote address and cannot be
		// matched against captured packets.
		if c.Raddr.IP == "" || c.Pid == 0 || c.Laddr.Port == 0 {
			continue
		}
		name, seen := s.names.Get(c.Pid)
		if !seen {
			if p, err := process.NewProcessWithContext(ctx, c.Pid); err == nil {
				name, _ = p.NameWithContext(ctx)
			}
			if name != "" {
				s.names.Add(c.Pid, name)
			}
		}
		if name == "" {
			continue
		}

		owner := Owner{PID: int64(c.Pid), Name: name}
		local := uint16(c.Laddr.Port)
		snap.ByConn[ConnKey{LocalPort: local, RemoteIP: c.Raddr.IP, RemotePort: uint16(c.Raddr.Port)}] = owner
		if _, exists := snap.ByPort[local]; !exists {
			snap.ByPort[local] = owner
		}
	}
	return snap, nil
}
