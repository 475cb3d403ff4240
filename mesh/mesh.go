// Package mesh holds the read-only mesh collaborators the compiler and the
// execution engine consume: element groups sharing one reference basis,
// directed face groups pairing interior/exterior traces, and tagged
// boundaries. Mesh generation and partitioning happen elsewhere; this
// package only describes their result.
package mesh

import "gonum.org/v1/gonum/mat"

// ElementGroup is a contiguous range of elements sharing one basis and
// order, so one set of dense reference matrices serves the whole group.
type ElementGroup struct {
	Start int // First global element index of the group
	Count int // Elements in the group
	Np    int // Nodes per element

	// NodeOffset is the global volume-node index of the group's first node.
	// Element e of the group owns nodes [NodeOffset+e*Np, NodeOffset+(e+1)*Np).
	NodeOffset int

	// Reference matrices, all [Np × Np] unless noted
	Mass    *mat.Dense
	InvMass *mat.Dense
	Diff    []*mat.Dense // per reference axis: nodal differentiation
	StiffT  []*mat.Dense // per reference axis: (M Dr)^T
	MInvST  []*mat.Dense // per reference axis: Minv (M Dr)^T

	// FaceMass maps face-node values into element contributions, one
	// [Np × NFp] matrix per local face index.
	FaceMass []*mat.Dense
	NFp      int

	// Jacobian is the per-element volume scaling factor, length Count.
	Jacobian []float64

	// Metric holds dr_{rst}/dx_{xyz} per element: Metric[rst][xyz][e].
	Metric [][][]float64
}

// NodeRange returns the global volume-node range of local element e.
func (g *ElementGroup) NodeRange(e int) (lo, hi int) {
	lo = g.NodeOffset + e*g.Np
	return lo, lo + g.Np
}

// Face is one directed face: flux contributions computed on it accumulate
// into its owning (interior-side) element only. A physical interior face
// appears once per side, so each face couples exactly two elements.
type Face struct {
	Group     int // index into Mesh.Groups of the owning element
	Element   int // local element index within the group
	FaceIndex int // local face number, selects the group's FaceMass matrix

	ElementNodes  []int // global volume nodes of the interior trace, length NFp
	NeighborNodes []int // global volume nodes of the exterior trace, length NFp

	Normal          []float64 // unit outward normal, length Dimensions
	Penalty         float64   // penalty base (order²/h)
	SurfaceJacobian float64
}

// FaceGroup is a set of directed faces sharing one face-point count.
type FaceGroup struct {
	NFp   int
	Faces []Face
}

// BoundaryFace is a directed face whose exterior trace is read from
// boundary-tagged data instead of a neighbor element.
type BoundaryFace struct {
	Group     int
	Element   int
	FaceIndex int

	ElementNodes  []int // global volume nodes of the interior trace
	BoundaryNodes []int // indices into the tag's boundary arrays

	Normal          []float64
	Penalty         float64
	SurfaceJacobian float64
}

// Boundary is the node set and face list of one boundary tag. A tag with no
// faces is legitimate (nothing to integrate there). RemoteRank >= 0 marks a
// rank boundary whose exterior data arrives via message exchange.
type Boundary struct {
	Tag string

	// VolumeIndices maps boundary node i to its global volume node.
	VolumeIndices []int

	Faces []BoundaryFace

	RemoteRank int // -1 for a local boundary
}

// FaceCount returns the number of boundary faces.
func (b *Boundary) FaceCount() int {
	if b == nil {
		return 0
	}
	return len(b.Faces)
}

// NumNodes returns the number of boundary nodes.
func (b *Boundary) NumNodes() int {
	if b == nil {
		return 0
	}
	return len(b.VolumeIndices)
}

// Mesh is the complete discretization geometry consumed by compilation and
// execution. It is read-only during both.
type Mesh struct {
	Dimensions  int
	NumElements int
	NumNodes    int // total volume nodes

	Groups     []*ElementGroup
	FaceGroups []*FaceGroup
	Boundaries map[string]*Boundary
}

// Boundary returns the descriptor of tag, or nil when the mesh has none.
func (m *Mesh) Boundary(tag string) *Boundary {
	return m.Boundaries[tag]
}

// BoundaryFaceCount returns the face count of tag; missing tags count zero.
func (m *Mesh) BoundaryFaceCount(tag string) int {
	return m.Boundaries[tag].FaceCount()
}

// VolumeZeros allocates a zeroed volume field array.
func (m *Mesh) VolumeZeros() []float64 {
	return make([]float64, m.NumNodes)
}
