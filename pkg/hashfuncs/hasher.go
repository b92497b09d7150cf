package hashfuncs

import (
	"github.com/cespare/xxhash/v2"
)

type HashSum64[K any] interface {
	HashSum64(k K) uint64
}

type StringHasher struct{}

func (sh StringHasher) HashSum64(k string) uint64 {
	return xxhash.Sum64String(k)
}

func NameHash(name string) uint64 {
	return xxhash.Sum64String(name)
}

// ShardOf maps key onto one of n backends. n must be positive.
func ShardOf(key string, n int) int {
	return int(NameHash(key) % uint64(n))
}
