package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mrvortex/hedge/element"
)

// Boundary tags assigned by NewLineMesh.
const (
	LineLeftTag  = "left"
	LineRightTag = "right"
)

// NewLineMesh builds a uniform 1-D mesh of K order-N line elements on
// [x0, x1], as one element group with Gauss-Lobatto nodes. The domain
// endpoints become the "left" and "right" boundary tags.
func NewLineMesh(K, order int, x0, x1 float64) *Mesh {
	if K < 1 || x1 <= x0 {
		panic(fmt.Sprintf("invalid line mesh: K=%d, x0=%g, x1=%g", K, x0, x1))
	}

	el := element.NewLineElement(order)
	np := el.Np()
	h := (x1 - x0) / float64(K)
	jac := h / 2         // dx/dr on a uniform element
	drdx := 1.0 / jac    // metric coefficient
	penalty := float64(order*order) / h

	// Reference matrices shared by the group
	M := denseCopy(el.M())
	Minv := denseCopy(el.Minv())
	Dr := denseCopy(el.Dr())

	// StiffT = (M Dr)^T, MInvST = Minv (M Dr)^T
	var mdr mat.Dense
	mdr.Mul(M, Dr)
	stiffT := mat.NewDense(np, np, nil)
	stiffT.CloneFrom(mdr.T())
	minvST := mat.NewDense(np, np, nil)
	minvST.Mul(Minv, stiffT)

	// Point face masses: face 0 is the left endpoint node, face 1 the right.
	fm0 := mat.NewDense(np, 1, nil)
	fm0.Set(0, 0, 1)
	fm1 := mat.NewDense(np, 1, nil)
	fm1.Set(np-1, 0, 1)

	group := &ElementGroup{
		Start:      0,
		Count:      K,
		Np:         np,
		NodeOffset: 0,
		Mass:       M,
		InvMass:    Minv,
		Diff:       []*mat.Dense{Dr},
		StiffT:     []*mat.Dense{stiffT},
		MInvST:     []*mat.Dense{minvST},
		FaceMass:   []*mat.Dense{fm0, fm1},
		NFp:        1,
		Jacobian:   make([]float64, K),
		Metric:     [][][]float64{{make([]float64, K)}},
	}
	for e := 0; e < K; e++ {
		group.Jacobian[e] = jac
		group.Metric[0][0][e] = drdx
	}

	// Interior faces: each physical face yields one directed face per side.
	fg := &FaceGroup{NFp: 1}
	for e := 0; e < K-1; e++ {
		right := e*np + np - 1 // right endpoint of element e
		left := (e + 1) * np   // left endpoint of element e+1
		fg.Faces = append(fg.Faces,
			Face{
				Group: 0, Element: e, FaceIndex: 1,
				ElementNodes:  []int{right},
				NeighborNodes: []int{left},
				Normal:        []float64{1},
				Penalty:       penalty, SurfaceJacobian: 1,
			},
			Face{
				Group: 0, Element: e + 1, FaceIndex: 0,
				ElementNodes:  []int{left},
				NeighborNodes: []int{right},
				Normal:        []float64{-1},
				Penalty:       penalty, SurfaceJacobian: 1,
			},
		)
	}

	leftBdry := &Boundary{
		Tag:           LineLeftTag,
		VolumeIndices: []int{0},
		RemoteRank:    -1,
		Faces: []BoundaryFace{{
			Group: 0, Element: 0, FaceIndex: 0,
			ElementNodes:  []int{0},
			BoundaryNodes: []int{0},
			Normal:        []float64{-1},
			Penalty:       penalty, SurfaceJacobian: 1,
		}},
	}
	rightBdry := &Boundary{
		Tag:           LineRightTag,
		VolumeIndices: []int{K*np - 1},
		RemoteRank:    -1,
		Faces: []BoundaryFace{{
			Group: 0, Element: K - 1, FaceIndex: 1,
			ElementNodes:  []int{K*np - 1},
			BoundaryNodes: []int{0},
			Normal:        []float64{1},
			Penalty:       penalty, SurfaceJacobian: 1,
		}},
	}

	return &Mesh{
		Dimensions:  1,
		NumElements: K,
		NumNodes:    K * np,
		Groups:      []*ElementGroup{group},
		FaceGroups:  []*FaceGroup{fg},
		Boundaries: map[string]*Boundary{
			LineLeftTag:  leftBdry,
			LineRightTag: rightBdry,
		},
	}
}

// LineNodes returns the physical node coordinates of a NewLineMesh result,
// useful for initializing fields in tests.
func LineNodes(K, order int, x0, x1 float64) []float64 {
	el := element.NewLineElement(order)
	np := el.Np()
	h := (x1 - x0) / float64(K)
	nodes := make([]float64, K*np)
	for e := 0; e < K; e++ {
		xl := x0 + float64(e)*h
		for i, r := range el.R() {
			nodes[e*np+i] = xl + (r+1)/2*h
		}
	}
	return nodes
}

func denseCopy(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	d := mat.NewDense(r, c, nil)
	d.Copy(m)
	return d
}
