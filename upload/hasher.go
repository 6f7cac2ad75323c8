package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"gitlab.com/NebulousLabs/errors"

	"github.com/shardbridge/core/crypto"
	"github.com/shardbridge/core/model"
)

// drainShard copies src into a new temp file under dir while computing the
// shard's content hash and audit Merkle tree, returning the populated
// model.Shard and the temp file's path.
func drainShard(dir string, index int, src io.Reader) (model.Shard, string, error) {
	tmpPath := newTempFileName(dir, index)
	f, err := os.Create(tmpPath)
	if err != nil {
		return model.Shard{}, "", errors.AddContext(err, "upload: unable to create temp file")
	}
	defer f.Close()

	hasher := sha256.New()
	tee := io.TeeReader(src, hasher)

	buf := make([]byte, 64<<10) // copy in 64 KiB chunks
	var size int64
	for {
		n, rerr := tee.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				os.Remove(tmpPath)
				return model.Shard{}, "", errors.AddContext(werr, "upload: unable to write temp file")
			}
			size += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			os.Remove(tmpPath)
			return model.Shard{}, "", errors.AddContext(rerr, "upload: unable to read shard stream")
		}
	}

	contentHash := crypto.RIPEMD160(hasher.Sum(nil))

	challenges := crypto.NewChallenges(defaultChallengeCount)
	shardBytes, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return model.Shard{}, "", errors.AddContext(err, "upload: unable to reread temp file for audit tree")
	}
	tree, err := crypto.NewAuditTree(shardBytes, challenges)
	if err != nil {
		os.Remove(tmpPath)
		return model.Shard{}, "", errors.AddContext(err, "upload: unable to build audit tree")
	}

	shard := model.Shard{
		Index:      index,
		Size:       size,
		Hash:       hex.EncodeToString(contentHash),
		Challenges: challenges,
		Tree:       tree.Root(),
	}
	return shard, tmpPath, nil
}

// defaultChallengeCount is how many audit challenges are generated per
// shard.
const defaultChallengeCount = 4
