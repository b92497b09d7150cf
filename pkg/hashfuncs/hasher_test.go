package hashfuncs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardOfIsStableAndInRange(t *testing.T) {
	for _, key := range []string{"", "igmp-stats", "igmp-stats/latest", "a"} {
		for n := 1; n <= 5; n++ {
			idx := ShardOf(key, n)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
			assert.Equal(t, idx, ShardOf(key, n))
		}
	}
	assert.Equal(t, NameHash("x"), StringHasher{}.HashSum64("x"))
}
