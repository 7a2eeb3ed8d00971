package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"go.etcd.io/bbolt"

	"github.com/Danconnolly/bsvlake-blockarchive/block"
)

var bucketBlocks = []byte("blocks")

// errScanCancelled aborts a bbolt ForEach when the list consumer is gone.
// It never escapes the scan.
var errScanCancelled = errors.New("scan cancelled")

// BoltArchive is a block archive backed by a single bbolt database file.
// Raw block bytes are stored in one bucket keyed by block hash.
//
// It exists for deployments with many small blocks, where one file per
// block wastes space and inodes; it serves the same interface as
// FileArchive so consumers cannot tell the backends apart.
type BoltArchive struct {
	db         *bbolt.DB
	listBuffer int
}

// Compile-time interface check.
var _ BlockArchive = (*BoltArchive)(nil)

// OpenBoltArchive opens or creates the archive database at dbPath.
func OpenBoltArchive(dbPath string) (*BoltArchive, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &BoltArchive{db: db, listBuffer: defaultListBuffer}, nil
}

// Close closes the underlying database.
func (a *BoltArchive) Close() error {
	return a.db.Close()
}

// readBlock copies the stored bytes for hash out of a read transaction.
// bbolt value slices are only valid inside the transaction.
func (a *BoltArchive) readBlock(hash *chainhash.Hash) ([]byte, error) {
	var raw []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(hash[:])
		if v == nil {
			return ErrBlockNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// GetBlock returns a reader over the stored block bytes.
func (a *BoltArchive) GetBlock(ctx context.Context, hash *chainhash.Hash) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.readBlock(hash)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// GetBlockFull loads a block completely into memory and decodes it.
func (a *BoltArchive) GetBlockFull(ctx context.Context, hash *chainhash.Hash) (*block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.readBlock(hash)
	if err != nil {
		return nil, err
	}
	return block.NewBlockFromBytes(raw)
}

// BlockExists reports whether a block is stored under hash.
func (a *BoltArchive) BlockExists(ctx context.Context, hash *chainhash.Hash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	err := a.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketBlocks).Get(hash[:]) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return exists, nil
}

// StoreBlock persists the bytes read from r verbatim under hash. The
// existence check and the put share one write transaction, so concurrent
// stores for the same hash cannot both succeed.
func (a *BoltArchive) StoreBlock(ctx context.Context, hash *chainhash.Hash, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	err = a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		if b.Get(hash[:]) != nil {
			return ErrBlockExists
		}
		return b.Put(hash[:], raw)
	})
	if err != nil {
		if errors.Is(err, ErrBlockExists) {
			return ErrBlockExists
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// StoreBlockFull persists a block under the hash derived from its header.
func (a *BoltArchive) StoreBlockFull(ctx context.Context, b *block.Block) error {
	hash, err := b.Hash()
	if err != nil {
		return err
	}
	return a.StoreBlock(ctx, &hash, bytes.NewReader(b.Bytes()))
}

// BlockSize returns the byte length of the stored block.
func (a *BoltArchive) BlockSize(ctx context.Context, hash *chainhash.Hash) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var size int64
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(hash[:])
		if v == nil {
			return ErrBlockNotFound
		}
		size = int64(len(v))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// BlockTxCount returns the number of transactions in the stored block.
func (a *BoltArchive) BlockTxCount(ctx context.Context, hash *chainhash.Hash) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := a.readBlock(hash)
	if err != nil {
		return 0, err
	}
	if len(raw) < block.HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes stored", ErrNotEnoughData, len(raw))
	}
	count, err := block.ReadCompactSize(bytes.NewReader(raw[block.HeaderSize:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotEnoughData, err)
	}
	return count, nil
}

// BlockHeader decodes the fixed-length header prefix of the stored block.
func (a *BoltArchive) BlockHeader(ctx context.Context, hash *chainhash.Hash) (*block.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.readBlock(hash)
	if err != nil {
		return nil, err
	}
	if len(raw) < block.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes stored", ErrNotEnoughData, len(raw))
	}
	return block.ParseHeader(raw[:block.HeaderSize])
}

// BlockBytes reads length bytes starting at offset within the stored block.
func (a *BoltArchive) BlockBytes(ctx context.Context, hash *chainhash.Hash, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.readBlock(hash)
	if err != nil {
		return nil, err
	}
	end := offset + int64(length)
	if offset < 0 || end > int64(len(raw)) {
		return nil, fmt.Errorf("%w: range [%d, %d) of %d bytes", ErrNotEnoughData, offset, end, len(raw))
	}
	return append([]byte(nil), raw[offset:end]...), nil
}

// BlockList enumerates every block key in the database as a lazy stream.
func (a *BoltArchive) BlockList(ctx context.Context) (*HashStream, error) {
	return startHashStream(ctx, a.listBuffer, func(ctx context.Context, out chan<- chainhash.Hash) error {
		err := a.db.View(func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketBlocks).ForEach(func(k, _ []byte) error {
				hash, err := chainhash.NewHash(k)
				if err != nil {
					// Foreign key in the bucket; not a stored block.
					return nil
				}
				select {
				case out <- *hash:
					return nil
				case <-ctx.Done():
					return errScanCancelled
				}
			})
		})
		if err != nil && !errors.Is(err, errScanCancelled) {
			return fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		return nil
	}), nil
}
