package transport

import (
	"net"
	"sync"
	"time"
)

// encapsulates a connection to a peer
type Connection struct {
	socket   net.Conn
	isClosed bool
}

// connects and returns a new connection
func Connect(addr string, timeout time.Duration) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Connection{socket: conn}, nil
}

// implements the io.Reader interface
func (c *Connection) Read(b []byte) (int, error) {
	size, err := c.socket.Read(b)
	if err != nil {
		c.isClosed = true
	}
	return size, err
}

// implements the io.Writer interface
func (c *Connection) Write(b []byte) (int, error) {
	size, err := c.socket.Write(b)
	if err != nil {
		c.isClosed = true
	}
	return size, err
}

func (c *Connection) SetDeadline(t time.Time) error {
	return c.socket.SetDeadline(t)
}

func (c *Connection) Close() {
	c.socket.Close()
	c.isClosed = true
}

func (c *Connection) Closed() bool {
	return c.isClosed
}

// pools connections to a single host
type ConnectionPool struct {
	mutex sync.Mutex

	addr        string
	maxConn     int
	dialTimeout time.Duration

	pool []*Connection
}

// creates a connection pool for the given address and max size.
// a max size of 0 means 10, a timeout of 0 or less means 10 seconds
func NewConnectionPool(addr string, maxConn int, dialTimeout time.Duration) *ConnectionPool {
	if maxConn <= 0 {
		maxConn = 10
	}
	if dialTimeout <= 0 {
		dialTimeout = time.Second * 10
	}
	return &ConnectionPool{
		addr:        addr,
		maxConn:     maxConn,
		dialTimeout: dialTimeout,
		pool:        make([]*Connection, 0, maxConn),
	}
}

// gets a connection from the pool, dialing a new one if the
// pool is empty
func (cp *ConnectionPool) Get() (*Connection, error) {
	cp.mutex.Lock()
	if len(cp.pool) > 0 {
		conn := cp.pool[len(cp.pool)-1]
		cp.pool = cp.pool[:len(cp.pool)-1]
		cp.mutex.Unlock()
		return conn, nil
	}
	cp.mutex.Unlock()
	return Connect(cp.addr, cp.dialTimeout)
}

// returns a connection to the pool. Closed connections and
// overflow are discarded
func (cp *ConnectionPool) Put(conn *Connection) {
	if conn.Closed() {
		return
	}
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	if len(cp.pool) < cp.maxConn {
		cp.pool = append(cp.pool, conn)
	} else {
		conn.Close()
	}
}

func (cp *ConnectionPool) CloseAll() {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()
	for _, conn := range cp.pool {
		conn.Close()
	}
	cp.pool = cp.pool[:0]
}
