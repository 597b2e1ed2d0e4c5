package partitioner

import (
	"crypto/md5"
)

// partitions on a keys md5 hash
type MD5Partitioner struct{}

func NewMD5Partitioner() MD5Partitioner {
	return MD5Partitioner{}
}

func (p MD5Partitioner) GetToken(key string) Token {
	h := md5.Sum([]byte(key))
	return Token(h[:])
}

func (p MD5Partitioner) Name() string {
	return "md5"
}
