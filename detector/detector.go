/**
Threshold based failure detection.

Liveness is a local belief: a node is DOWN after its heartbeats have
been missing for a configurable number of consecutive intervals, and
UP again after a single heartbeat. Recovery listeners are how hinted
handoff learns a target is reachable again.
*/
package detector

import (
	"sync"
	"time"

	logging "github.com/op/go-logging"

	"github.com/southpawdb/southpaw/node"
)

var logger = logging.MustGetLogger("detector")

// notified when a node transitions DOWN -> UP
type RecoveryListener func(nid node.NodeId)

type Detector struct {
	interval  time.Duration
	threshold int

	mutex    sync.RWMutex
	lastSeen map[node.NodeId]time.Time
	down     map[node.NodeId]bool

	listeners []RecoveryListener

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewDetector(interval time.Duration, threshold int) *Detector {
	return &Detector{
		interval:  interval,
		threshold: threshold,
		lastSeen:  make(map[node.NodeId]time.Time),
		down:      make(map[node.NodeId]bool),
		stopChan:  make(chan struct{}),
	}
}

// starts the background sweep loop
func (d *Detector) Start() {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				d.sweep(now)
			case <-d.stopChan:
				return
			}
		}
	}()
}

func (d *Detector) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
}

// registers a recovery listener. Must be called before Start
func (d *Detector) OnRecovery(listener RecoveryListener) {
	d.listeners = append(d.listeners, listener)
}

// starts tracking a node, initially live
func (d *Detector) Register(nid node.NodeId) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, exists := d.lastSeen[nid]; !exists {
		d.lastSeen[nid] = time.Now()
	}
}

func (d *Detector) Deregister(nid node.NodeId) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	delete(d.lastSeen, nid)
	delete(d.down, nid)
}

// records a heartbeat for a node. A heartbeat from a DOWN node
// marks it UP and fires the recovery listeners
func (d *Detector) Heartbeat(nid node.NodeId) {
	d.mutex.Lock()
	d.lastSeen[nid] = time.Now()
	recovered := d.down[nid]
	if recovered {
		delete(d.down, nid)
	}
	d.mutex.Unlock()

	if recovered {
		logger.Infof("node %v is UP", nid)
		for _, listener := range d.listeners {
			go listener(nid)
		}
	}
}

// reports the current liveness belief. Unknown nodes are not live
func (d *Detector) IsLive(nid node.NodeId) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if _, exists := d.lastSeen[nid]; !exists {
		return false
	}
	return !d.down[nid]
}

func (d *Detector) Status(nid node.NodeId) node.Status {
	if d.IsLive(nid) {
		return node.STATUS_UP
	}
	return node.STATUS_DOWN
}

// marks nodes DOWN once their last heartbeat is more than
// threshold intervals old
func (d *Detector) sweep(now time.Time) {
	deadline := time.Duration(d.threshold) * d.interval

	d.mutex.Lock()
	defer d.mutex.Unlock()
	for nid, seen := range d.lastSeen {
		if d.down[nid] {
			continue
		}
		if now.Sub(seen) >= deadline {
			logger.Warningf("node %v is DOWN, last heartbeat %v ago", nid, now.Sub(seen))
			d.down[nid] = true
		}
	}
}
