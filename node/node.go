/**
Node identity and lifecycle state shared across the cluster packages
*/
package node

import (
	"fmt"

	"github.com/google/uuid"
)

type NodeId string

func NewNodeId() NodeId {
	return NodeId(uuid.New().String())
}

// parses a node id, rejecting anything that isn't a uuid
func ParseNodeId(s string) (NodeId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid node id [%v]: %v", s, err)
	}
	return NodeId(id.String()), nil
}

type Status string

const (
	STATUS_JOINING = Status("JOINING")
	STATUS_UP      = Status("UP")
	STATUS_DOWN    = Status("DOWN")
	STATUS_LEAVING = Status("LEAVING")
)

type Node interface {
	GetId() NodeId
	Name() string
}
