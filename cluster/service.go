package cluster

import (
	"context"

	"github.com/southpawdb/southpaw/message"
	"github.com/southpawdb/southpaw/node"
)

// replica side handling of coordinator requests. The transport
// delivers decoded messages here and writes the returned message
// back to the peer
type QueryService struct {
	local *LocalNode

	// invoked with the sender's id when a heartbeat arrives
	onHeartbeat func(node.NodeId)
}

func NewQueryService(local *LocalNode) *QueryService {
	return &QueryService{local: local}
}

// registers the callback heartbeats are reported to. Must be
// called before the transport starts delivering messages
func (s *QueryService) OnHeartbeat(fn func(node.NodeId)) {
	s.onHeartbeat = fn
}

func (s *QueryService) HandleMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	switch m := msg.(type) {
	case *message.ReadRequest:
		val, err := s.local.Read(ctx, m.Key)
		if err != nil {
			logger.Errorf("local read of key %v failed: %v", m.Key, err)
			return &message.ErrorResponse{Message: err.Error()}, nil
		}
		if val == nil {
			return &message.ReadResponse{Found: false}, nil
		}
		return &message.ReadResponse{Found: true, Value: *val}, nil

	case *message.WriteRequest:
		if err := s.local.Write(ctx, m.Key, &m.Value); err != nil {
			logger.Errorf("local write of key %v failed: %v", m.Key, err)
			return &message.ErrorResponse{Message: err.Error()}, nil
		}
		return &message.WriteResponse{}, nil

	case *message.HeartbeatRequest:
		if s.onHeartbeat != nil {
			s.onHeartbeat(node.NodeId(m.NodeId))
		}
		return &message.HeartbeatResponse{NodeId: string(s.local.GetId())}, nil

	default:
		return nil, message.NewMessageEncodingError("unexpected message type: %T", msg)
	}
}
