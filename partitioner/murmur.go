package partitioner

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// partitions on a keys 128 bit murmur3 hash, the default
type Murmur3Partitioner struct{}

func NewMurmur3Partitioner() Murmur3Partitioner {
	return Murmur3Partitioner{}
}

func (p Murmur3Partitioner) GetToken(key string) Token {
	h1, h2 := murmur3.Sum128([]byte(key))
	t := make(Token, 16)
	binary.BigEndian.PutUint64(t[:8], h1)
	binary.BigEndian.PutUint64(t[8:], h2)
	return t
}

func (p Murmur3Partitioner) Name() string {
	return "murmur3"
}
