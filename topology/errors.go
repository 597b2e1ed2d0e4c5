package topology

import (
	"fmt"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
)

// returned when a token assignment collides with an
// existing assignment held by a different node
type ConflictError struct {
	Token   partitioner.Token
	Owner   node.NodeId
	Claimed node.NodeId
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("token %v is owned by node %v, cannot assign to %v", e.Token, e.Owner, e.Claimed)
}

func NewConflictError(token partitioner.Token, owner node.NodeId, claimed node.NodeId) *ConflictError {
	return &ConflictError{Token: token, Owner: owner, Claimed: claimed}
}

type UnknownNodeError struct {
	Node node.NodeId
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("no node found by node id: %v", e.Node)
}

func NewUnknownNodeError(nid node.NodeId) *UnknownNodeError {
	return &UnknownNodeError{Node: nid}
}
