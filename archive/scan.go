package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/Danconnolly/bsvlake-blockarchive/block"
)

// scanBlocks walks the archive tree under root and sends every correctly
// placed block hash to out. The walk is an iterative depth-first traversal
// over an explicit stack, so its memory use is bounded by directory width
// rather than tree depth.
//
// It returns nil on completion or cancellation, and an error if a
// directory could not be listed, in which case the enumeration is partial.
// Files are observed live, not from a snapshot: entries created or removed
// during the scan may or may not appear.
func scanBlocks(ctx context.Context, root string, out chan<- chainhash.Hash) error {
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return nil
			}
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, path)
				continue
			}
			hash, ok := acceptBlockFile(root, path, entry.Name())
			if !ok {
				continue
			}
			select {
			case out <- *hash:
			case <-ctx.Done():
				// The consumer walked away. Routine, not an error.
				return nil
			}
		}
	}
	return nil
}

// acceptBlockFile decides whether a file counts as a stored block. It must
// carry the block extension, its stem must parse as a block hash, and it
// must sit at the canonical sharded path for that hash. Everything else is
// silently skipped: a block file in the wrong location would never be
// found by GetBlock, so enumerating it would advertise an entry the
// archive cannot serve.
func acceptBlockFile(root, path, name string) (*chainhash.Hash, bool) {
	if filepath.Ext(name) != blockFileExt {
		return nil, false
	}
	hash, err := block.ParseHash(strings.TrimSuffix(name, blockFileExt))
	if err != nil {
		return nil, false
	}
	if path != canonicalPath(root, hash) {
		return nil, false
	}
	return hash, true
}
