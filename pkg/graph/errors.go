package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is matched by every DuplicateNameError.
	ErrDuplicateName = errors.New("duplicate connection name")
	// ErrNodeNotInTopology is returned when a node handed to a topology
	// operation belongs to another topology or was removed.
	ErrNodeNotInTopology = errors.New("node is not a member of the topology")
	// ErrSelfConnection is returned when source and target are the same node.
	ErrSelfConnection = errors.New("connection source and target are the same node")
)

// DuplicateNameError reports an explicit connection name that is already taken.
type DuplicateNameError struct {
	Name     string
	Topology string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("connection name %q already exists in topology %s", e.Name, e.Topology)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}
