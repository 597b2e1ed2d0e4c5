/**
Maps partition keys onto ring tokens.

Tokens are fixed width byte slices ordered by bytes.Compare. Two
partitioners with the same key always produce the same token, so
replica placement can be recomputed from ring state alone.
*/
package partitioner

import (
	"bytes"
	"encoding/hex"
)

type Token []byte

func (t Token) Cmp(o Token) int {
	return bytes.Compare(t, o)
}

func (t Token) Equal(o Token) bool {
	return bytes.Equal(t, o)
}

func (t Token) String() string {
	return hex.EncodeToString(t)
}

type Partitioner interface {
	// returns the ring token for the given key
	GetToken(key string) Token

	// returns the partitioner name, used to detect
	// mismatched partitioners between cluster members
	Name() string
}
