// Package partition implements the cluster's topic-to-backend hash. Every
// frontend must compute the same index for the same topic name, so the
// function here is pinned bit-exact: changing the digest, the byte slice,
// the endianness, or the modulo reshuffles every topic's home backend.
package partition

import (
	"crypto/md5"
	"encoding/binary"
)

// Partition maps topic to an index in [0, n) via the first 4 bytes of its
// MD5 digest, read as a little-endian uint32, modulo n. n must be positive.
//
// MD5 is used here as a non-cryptographic, fixed-width, universally
// available hash, not for any security property; crypto/md5 is the
// standard library's implementation of exactly that digest, so there is no
// third-party substitute to reach for.
func Partition(topic string, n int) int {
	sum := md5.Sum([]byte(topic))
	v := binary.LittleEndian.Uint32(sum[:4])
	return int(v % uint32(n))
}
