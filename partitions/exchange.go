// Package partitions supports running one compiled tree per mesh partition:
// splitting a mesh into per-rank pieces whose cut interfaces become rank
// boundaries, and exchanging boundary data between ranks. The exchanger here
// is shared-memory, for ranks driven as goroutines of one process; its
// blocking rendezvous mirrors a message-passing exchange.
package partitions

import (
	"context"
	"fmt"
	"sync"
)

// Hub is the meeting point of all in-process ranks. One send/receive slot
// exists per ordered rank pair; Exchange deposits into (me, remote) and
// blocks on (remote, me).
type Hub struct {
	mu    sync.Mutex
	slots map[[2]int]chan map[string][]float64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{slots: make(map[[2]int]chan map[string][]float64)}
}

func (h *Hub) slot(from, to int) chan map[string][]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := [2]int{from, to}
	c, ok := h.slots[key]
	if !ok {
		c = make(chan map[string][]float64, 1)
		h.slots[key] = c
	}
	return c
}

// Link connects one local boundary tag to a neighbor rank. Place, when
// non-nil, reorders received arrays: local boundary node i reads received
// index Place[i]. Needed when the two sides enumerate the shared interface
// nodes in different orders.
type Link struct {
	Tag        string
	RemoteRank int
	Place      []int
}

// BufferExchanger exchanges boundary data for one rank through a shared
// hub. It satisfies the execution engine's exchanger contract; exchanged
// arrays are keyed by field name on both sides.
type BufferExchanger struct {
	hub   *Hub
	rank  int
	links map[string]Link
}

// NewBufferExchanger builds the exchanger for rank over hub.
func NewBufferExchanger(hub *Hub, rank int, links []Link) *BufferExchanger {
	byTag := make(map[string]Link, len(links))
	for _, l := range links {
		byTag[l.Tag] = l
	}
	return &BufferExchanger{hub: hub, rank: rank, links: byTag}
}

// Exchange sends this rank's picked boundary data for tag and blocks until
// the neighbor's arrives.
func (x *BufferExchanger) Exchange(ctx context.Context, tag string, interior map[string][]float64) (map[string][]float64, error) {
	link, ok := x.links[tag]
	if !ok {
		return nil, fmt.Errorf("rank %d has no link for boundary tag %q", x.rank, tag)
	}

	select {
	case x.hub.slot(x.rank, link.RemoteRank) <- interior:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var recv map[string][]float64
	select {
	case recv = <-x.hub.slot(link.RemoteRank, x.rank):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if link.Place == nil {
		return recv, nil
	}
	placed := make(map[string][]float64, len(recv))
	for name, f := range recv {
		p := make([]float64, len(link.Place))
		for i, j := range link.Place {
			p[i] = f[j]
		}
		placed[name] = p
	}
	return placed, nil
}
