/**
Local storage boundary consumed by the coordination core.

The engine is assumed durable once Put returns. Compaction, memtables
and the rest of the LSM machinery live behind this interface and are
not this package's problem.
*/
package storage

type Engine interface {
	Start() error
	Stop() error

	// returns the value stored for key, or nil if none exists.
	// Tombstones are returned like any other value, reconciling
	// them is the caller's job
	Get(key string) (*Value, error)

	// stores the value for key, unconditionally
	Put(key string, val *Value) error

	// returns all keys held by the engine, for streaming
	// and anti-entropy passes
	Keys() ([]string, error)
}
