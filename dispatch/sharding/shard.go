package sharding

import (
	"hash/fnv"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// ShardIndexUint is a type alias for uint, representing the index of a delivery lane.
type ShardIndexUint = uint

// ShardIndexFor is the pure shard assignment function: stable for a given
// target and shard count, so the same target always lands on the same lane
// as long as the topology does not change. Changing the shard count requires
// the surrounding system to quiesce first; re-sharding is out of scope.
// A zero shard count maps everything to lane 0.
func ShardIndexFor(target signals.TargetID, shardCount uint) ShardIndexUint {
	if shardCount == 0 {
		return 0
	}

	hash := fnv.New64a()
	_, _ = hash.Write([]byte(target.Key()))

	return ShardIndexUint(hash.Sum64() % uint64(shardCount))
}
