package topology

import (
	"errors"
	"fmt"
)

// Causes wrapped by AssetTopologyError.
var (
	ErrNonManifold = errors.New("edge shared by more than four triangles")
	ErrIndexWidth  = errors.New("unsupported index width")
	ErrIndexCount  = errors.New("index count is not a multiple of three")
	ErrIndexRange  = errors.New("index out of range")
)

// AssetTopologyError reports a mesh the indexer cannot turn into adjacency
// primitives. It is fatal for the asset: no partial buffers are produced.
type AssetTopologyError struct {
	Mesh  string
	Group int
	// Edge is set for ErrNonManifold.
	Edge *Edge
	// Detail carries the offending value, such as the index width.
	Detail string
	Err    error
}

func (e *AssetTopologyError) Error() string {
	msg := fmt.Sprintf("mesh %q group %d: %v", e.Mesh, e.Group, e.Err)
	if e.Edge != nil {
		msg += fmt.Sprintf(" (edge %d-%d)", e.Edge.First, e.Edge.Second)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AssetTopologyError) Unwrap() error { return e.Err }
