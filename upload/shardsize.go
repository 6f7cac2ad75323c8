package upload

// MinShardSize is the smallest shard size the staircase will choose.
const MinShardSize int64 = 2 << 20 // 2 MiB

// MaxShardSize bounds the staircase at the largest shard size.
const MaxShardSize int64 = 8 << 20 // 8 MiB

// DefaultMaxShardsPerFile bounds how many shards a single file may be
// split into before the staircase steps up to a larger shard size. This
// is a deliberate choice recorded in DESIGN.md: the exact
// upstream thresholds were not recoverable from the retrieved source, so
// this policy is documented here rather than assumed to be a discovered
// constant.
const DefaultMaxShardsPerFile = 4096

// ShardSize returns the smallest power-of-two shard size, bounded to
// [MinShardSize, MaxShardSize], such that fileSize/shardSize does not
// exceed maxShardsPerFile. A maxShardsPerFile <= 0
// selects DefaultMaxShardsPerFile.
func ShardSize(fileSize int64, maxShardsPerFile int) int64 {
	if maxShardsPerFile <= 0 {
		maxShardsPerFile = DefaultMaxShardsPerFile
	}
	size := MinShardSize
	for size < MaxShardSize && fileSize/size > int64(maxShardsPerFile) {
		size *= 2
	}
	return size
}
