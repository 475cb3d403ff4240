package partitions

import (
	"fmt"

	"github.com/mrvortex/hedge/mesh"
)

// LinePartition is one rank's share of a split line mesh: the local mesh,
// with cut interfaces marked as rank boundaries, and the links its
// exchanger needs.
type LinePartition struct {
	Rank  int
	Mesh  *mesh.Mesh
	Links []Link
}

// SplitLineMesh partitions a K-element line mesh over ranks contiguous
// ranks. Each rank gets a near-equal contiguous element range; the cut
// between ranks r and r+1 turns rank r's right boundary and rank r+1's
// left boundary into rank boundaries pointing at each other. The outermost
// left/right boundaries stay local.
func SplitLineMesh(K, order, ranks int, x0, x1 float64) ([]LinePartition, error) {
	if ranks < 1 {
		return nil, fmt.Errorf("splitting a line mesh needs at least one rank, got %d", ranks)
	}
	if K < ranks {
		return nil, fmt.Errorf("cannot split %d elements over %d ranks", K, ranks)
	}

	h := (x1 - x0) / float64(K)
	parts := make([]LinePartition, 0, ranks)
	start := 0
	for r := 0; r < ranks; r++ {
		count := K / ranks
		if r < K%ranks {
			count++
		}
		xa := x0 + float64(start)*h
		xb := x0 + float64(start+count)*h
		m := mesh.NewLineMesh(count, order, xa, xb)

		var links []Link
		if r > 0 {
			m.Boundaries[mesh.LineLeftTag].RemoteRank = r - 1
			links = append(links, Link{Tag: mesh.LineLeftTag, RemoteRank: r - 1})
		}
		if r < ranks-1 {
			m.Boundaries[mesh.LineRightTag].RemoteRank = r + 1
			links = append(links, Link{Tag: mesh.LineRightTag, RemoteRank: r + 1})
		}

		parts = append(parts, LinePartition{Rank: r, Mesh: m, Links: links})
		start += count
	}
	return parts, nil
}

// Exchangers wires one BufferExchanger per partition over a fresh hub.
func Exchangers(parts []LinePartition) []*BufferExchanger {
	hub := NewHub()
	xs := make([]*BufferExchanger, len(parts))
	for i, p := range parts {
		xs[i] = NewBufferExchanger(hub, p.Rank, p.Links)
	}
	return xs
}
