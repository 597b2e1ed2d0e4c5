package transport

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/southpawdb/southpaw/cluster"
	"github.com/southpawdb/southpaw/message"
)

// sends request messages to peers over pooled tcp connections.
// Conversations are lockstep: one request, one response, then the
// connection goes back to the pool
type TCPSender struct {
	mutex sync.Mutex
	pools map[string]*ConnectionPool

	maxConn     int
	dialTimeout time.Duration
}

var _ cluster.MessageSender = &TCPSender{}

func NewTCPSender(maxConn int, dialTimeout time.Duration) *TCPSender {
	return &TCPSender{
		pools:       make(map[string]*ConnectionPool),
		maxConn:     maxConn,
		dialTimeout: dialTimeout,
	}
}

func (s *TCPSender) pool(addr string) *ConnectionPool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cp, ok := s.pools[addr]
	if !ok {
		cp = NewConnectionPool(addr, s.maxConn, s.dialTimeout)
		s.pools[addr] = cp
	}
	return cp
}

func (s *TCPSender) SendMessage(ctx context.Context, addr string, msg message.Message) (message.Message, error) {
	cp := s.pool(addr)
	conn, err := cp.Get()
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %v", addr)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if err := message.WriteMessage(conn, msg); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "writing request to %v", addr)
	}
	response, err := message.ReadMessage(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "reading response from %v", addr)
	}

	// clear the deadline before the connection is reused
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return response, nil
	}
	cp.Put(conn)
	return response, nil
}

func (s *TCPSender) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, cp := range s.pools {
		cp.CloseAll()
	}
}
