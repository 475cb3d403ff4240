package partitions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvortex/hedge/flux"
	"github.com/mrvortex/hedge/mesh"
	"github.com/mrvortex/hedge/rewrite"
	"github.com/mrvortex/hedge/runner"
	"github.com/mrvortex/hedge/symbolic"
)

func TestSplitLineMesh(t *testing.T) {
	parts, err := SplitLineMesh(5, 2, 2, 0, 1)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, 3, parts[0].Mesh.NumElements)
	assert.Equal(t, 2, parts[1].Mesh.NumElements)

	t.Run("OuterBoundariesStayLocal", func(t *testing.T) {
		assert.Equal(t, -1, parts[0].Mesh.Boundary(mesh.LineLeftTag).RemoteRank)
		assert.Equal(t, -1, parts[1].Mesh.Boundary(mesh.LineRightTag).RemoteRank)
	})

	t.Run("CutBecomesRankBoundary", func(t *testing.T) {
		assert.Equal(t, 1, parts[0].Mesh.Boundary(mesh.LineRightTag).RemoteRank)
		assert.Equal(t, 0, parts[1].Mesh.Boundary(mesh.LineLeftTag).RemoteRank)

		require.Len(t, parts[0].Links, 1)
		assert.Equal(t, mesh.LineRightTag, parts[0].Links[0].Tag)
		assert.Equal(t, 1, parts[0].Links[0].RemoteRank)
		require.Len(t, parts[1].Links, 1)
		assert.Equal(t, mesh.LineLeftTag, parts[1].Links[0].Tag)
	})

	t.Run("ElementRangesTile", func(t *testing.T) {
		// h = 0.2 everywhere, so every element Jacobian is 0.1 on both ranks.
		for _, p := range parts {
			for _, j := range p.Mesh.Groups[0].Jacobian {
				assert.InDelta(t, 0.1, j, 1e-12)
			}
		}
	})

	t.Run("BadArguments", func(t *testing.T) {
		_, err := SplitLineMesh(4, 1, 0, 0, 1)
		assert.Error(t, err)
		_, err = SplitLineMesh(2, 1, 3, 0, 1)
		assert.Error(t, err)
	})
}

func TestBufferExchangerRendezvous(t *testing.T) {
	hub := NewHub()
	a := NewBufferExchanger(hub, 0, []Link{{Tag: "cut", RemoteRank: 1}})
	b := NewBufferExchanger(hub, 1, []Link{{Tag: "cut", RemoteRank: 0}})

	var wg sync.WaitGroup
	var fromB, fromA map[string][]float64
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		fromB, errA = a.Exchange(context.Background(), "cut", map[string][]float64{"u": {1, 2}})
	}()
	go func() {
		defer wg.Done()
		fromA, errB = b.Exchange(context.Background(), "cut", map[string][]float64{"u": {3, 4}})
	}()
	wg.Wait()

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, []float64{3, 4}, fromB["u"])
	assert.Equal(t, []float64{1, 2}, fromA["u"])
}

func TestBufferExchangerPlace(t *testing.T) {
	hub := NewHub()
	a := NewBufferExchanger(hub, 0, []Link{{Tag: "cut", RemoteRank: 1, Place: []int{2, 1, 0}}})
	b := NewBufferExchanger(hub, 1, []Link{{Tag: "cut", RemoteRank: 0}})

	var wg sync.WaitGroup
	var got map[string][]float64
	var errA error
	wg.Add(2)
	go func() {
		defer wg.Done()
		got, errA = a.Exchange(context.Background(), "cut", map[string][]float64{"u": {0, 0, 0}})
	}()
	go func() {
		defer wg.Done()
		_, _ = b.Exchange(context.Background(), "cut", map[string][]float64{"u": {10, 20, 30}})
	}()
	wg.Wait()

	require.NoError(t, errA)
	assert.Equal(t, []float64{30, 20, 10}, got["u"])
}

func TestBufferExchangerErrors(t *testing.T) {
	t.Run("UnknownTag", func(t *testing.T) {
		x := NewBufferExchanger(NewHub(), 0, nil)
		_, err := x.Exchange(context.Background(), "cut", nil)
		assert.ErrorContains(t, err, "no link")
	})

	t.Run("CancelWhileWaiting", func(t *testing.T) {
		x := NewBufferExchanger(NewHub(), 0, []Link{{Tag: "cut", RemoteRank: 1}})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := x.Exchange(ctx, "cut", map[string][]float64{"u": {1}})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// Two ranks each apply a jump flux at their shared cut. The global field is
// x, continuous across the cut, so the exchanged exterior trace equals the
// interior trace and the flux contribution vanishes on both sides.
func TestTwoRankJumpContinuity(t *testing.T) {
	const order = 1
	parts, err := SplitLineMesh(4, order, 2, 0, 1)
	require.NoError(t, err)
	xs := Exchangers(parts)

	jump := flux.Sub(flux.Int(0), flux.Ext(0))
	u := &symbolic.Variable{Name: "u"}
	uex := &symbolic.Variable{Name: "uex"}
	tags := []string{mesh.LineRightTag, mesh.LineLeftTag}

	outs := make([][][]float64, len(parts))
	errs := make([]error, len(parts))
	var wg sync.WaitGroup
	for r, p := range parts {
		tree, err := rewrite.Compile(
			symbolic.Apply(
				&symbolic.BoundaryFluxOp{Flux: jump, Tag: tags[r]},
				&symbolic.BoundaryPair{Interior: u, Boundary: uex, Tag: tags[r]},
			),
			symbolic.NewTypeDict(), p.Mesh, rewrite.Options{Warnf: func(string, ...any) {}},
		)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			xa := 0.5 * float64(p.Rank)
			xb := xa + 0.5
			nodes := mesh.LineNodes(p.Mesh.NumElements, order, xa, xb)
			outs[p.Rank], errs[p.Rank] = runner.Execute(context.Background(), tree, p.Mesh, &runner.Bindings{
				Fields: map[string][]float64{"u": nodes, "uex": nodes},
			}, runner.Config{Exchanger: xs[p.Rank]})
		}()
	}
	wg.Wait()

	for r := range parts {
		require.NoError(t, errs[r])
		for i, v := range outs[r][0] {
			assert.InDeltaf(t, 0, v, 1e-12, "rank %d node %d", r, i)
		}
	}
}

func TestRankBoundaryWithoutExchanger(t *testing.T) {
	parts, err := SplitLineMesh(2, 1, 2, 0, 1)
	require.NoError(t, err)

	u := &symbolic.Variable{Name: "u"}
	uex := &symbolic.Variable{Name: "uex"}
	tree, err := rewrite.Compile(
		symbolic.Apply(
			&symbolic.BoundaryFluxOp{Flux: flux.Ext(0), Tag: mesh.LineRightTag},
			&symbolic.BoundaryPair{Interior: u, Boundary: uex, Tag: mesh.LineRightTag},
		),
		symbolic.NewTypeDict(), parts[0].Mesh, rewrite.Options{Warnf: func(string, ...any) {}},
	)
	require.NoError(t, err)

	n := parts[0].Mesh.NumNodes
	_, err = runner.Execute(context.Background(), tree, parts[0].Mesh, &runner.Bindings{
		Fields: map[string][]float64{"u": make([]float64, n), "uex": make([]float64, n)},
	}, runner.Config{})
	var uerr *symbolic.UnresolvedBoundaryTagError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, mesh.LineRightTag, uerr.Tag)
}
