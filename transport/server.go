package transport

import (
	"context"
	"io"
	"net"

	logging "github.com/op/go-logging"

	"github.com/southpawdb/southpaw/cluster"
	"github.com/southpawdb/southpaw/message"
)

var logger = logging.MustGetLogger("transport")

// accepts peer connections and feeds decoded messages to the
// query service, one request/response exchange at a time per
// connection
type PeerServer struct {
	listenAddr string
	service    *cluster.QueryService

	listener  net.Listener
	isRunning bool
}

func NewPeerServer(listenAddr string, service *cluster.QueryService) *PeerServer {
	return &PeerServer{
		listenAddr: listenAddr,
		service:    service,
	}
}

func (s *PeerServer) GetAddr() string {
	return s.listenAddr
}

func (s *PeerServer) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	// resolves ":0" style addrs to the port actually bound
	s.listenAddr = ln.Addr().String()
	s.isRunning = true
	go s.acceptConnections()
	logger.Infof("listening for peers on %v", s.listenAddr)
	return nil
}

func (s *PeerServer) Stop() error {
	s.isRunning = false
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *PeerServer) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// the listener was closed by Stop
			if !s.isRunning {
				return
			}
			logger.Errorf("accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *PeerServer) handleConnection(conn net.Conn) {
	defer conn.Close()
	for {
		request, err := message.ReadMessage(conn)
		if err != nil {
			if err != io.EOF {
				logger.Warningf("reading request from %v: %v", conn.RemoteAddr(), err)
			}
			return
		}

		response, err := s.service.HandleMessage(context.Background(), request)
		if err != nil {
			logger.Warningf("handling request from %v: %v", conn.RemoteAddr(), err)
			response = &message.ErrorResponse{Message: err.Error()}
		}
		if err := message.WriteMessage(conn, response); err != nil {
			logger.Warningf("writing response to %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
