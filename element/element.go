// Package element defines reference elements: the per-order nodal basis
// matrices that one element group shares across all of its elements.
package element

import "gonum.org/v1/gonum/mat"

// Element is a reference element of one geometry and order. All matrices
// are defined on the reference coordinates and shared by every element of a
// group.
type Element interface {
	Name() string
	Order() int
	Np() int  // Nodes per element
	NFp() int // Nodes per face
	NFaces() int
	Dimensions() int

	// Reference node locations
	R() []float64

	// Nodal / Modal matrices
	V() mat.Matrix
	Vinv() mat.Matrix
	M() mat.Matrix
	Minv() mat.Matrix

	// Basic operators
	Dr() mat.Matrix
	LIFT() mat.Matrix
}
