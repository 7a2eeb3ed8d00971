package archive

import (
	"context"
	"io"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/Danconnolly/bsvlake-blockarchive/block"
)

// BlockArchive stores blocks, where a block is a header and the
// transactions required to validate it.
//
// The archive has very little knowledge of the structure of a block: it
// knows the fixed header length and how to read the transaction count that
// follows it, and otherwise treats blocks as opaque byte blobs keyed by
// block hash.
type BlockArchive interface {
	// GetBlock returns a reader over the stored block bytes. The content is
	// not validated. The caller must close the reader.
	GetBlock(ctx context.Context, hash *chainhash.Hash) (io.ReadCloser, error)

	// GetBlockFull loads a block completely into memory and decodes it.
	GetBlockFull(ctx context.Context, hash *chainhash.Hash) (*block.Block, error)

	// BlockExists reports whether a block is stored under hash. Absence is
	// not an error; only an I/O failure is.
	BlockExists(ctx context.Context, hash *chainhash.Hash) (bool, error)

	// StoreBlock persists the bytes read from r verbatim under hash. It
	// fails with ErrBlockExists if an entry already occupies the hash.
	StoreBlock(ctx context.Context, hash *chainhash.Hash, r io.Reader) error

	// StoreBlockFull persists a block under the hash derived from its header.
	StoreBlockFull(ctx context.Context, b *block.Block) error

	// BlockSize returns the byte length of the stored block.
	BlockSize(ctx context.Context, hash *chainhash.Hash) (int64, error)

	// BlockTxCount returns the number of transactions in the stored block,
	// reading only the header-length prefix and the compact-size count.
	BlockTxCount(ctx context.Context, hash *chainhash.Hash) (uint64, error)

	// BlockHeader reads and decodes the fixed-length header prefix.
	BlockHeader(ctx context.Context, hash *chainhash.Hash) (*block.Header, error)

	// BlockBytes reads length bytes starting at offset within the stored
	// block. It can retrieve a single transaction once its location is
	// known from external indexing.
	BlockBytes(ctx context.Context, hash *chainhash.Hash, offset int64, length int) ([]byte, error)

	// BlockList enumerates every block in the archive as a lazy stream of
	// hashes, in no particular order. Each call starts a fresh independent
	// scan.
	BlockList(ctx context.Context) (*HashStream, error)
}

// HashStream is a lazy, finite sequence of block hashes fed by a background
// scan. The scan runs concurrently with the consumer, so hashes can be
// consumed before the scan completes.
//
// A consumer that stops early must call Close to terminate the scan;
// otherwise the scan goroutine stays blocked on delivery until the context
// passed to BlockList is cancelled.
type HashStream struct {
	ch     <-chan chainhash.Hash
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// startHashStream runs scan in a goroutine and returns the stream it feeds.
// The scan must honor ctx and return nil when cancelled: a consumer walking
// away is routine, not a failure.
func startHashStream(ctx context.Context, buffer int, scan func(context.Context, chan<- chainhash.Hash) error) *HashStream {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan chainhash.Hash, buffer)
	s := &HashStream{
		ch:     ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(ch)
		// err is published before the channel closes, so consumers that
		// observed the close may read it without further synchronization.
		s.err = scan(ctx, ch)
	}()
	return s
}

// Next returns the next hash in the stream. It returns (nil, nil) once the
// scan has finished and all hashes have been consumed, and (nil, err) if
// the scan failed partway: an error after N hashes means the enumeration
// was incomplete, not that those N hashes are invalid.
func (s *HashStream) Next(ctx context.Context) (*chainhash.Hash, error) {
	select {
	case h, ok := <-s.ch:
		if !ok {
			return nil, s.err
		}
		return &h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels the background scan and blocks until it has exited. It
// returns the scan error, if any, and is safe to call multiple times.
func (s *HashStream) Close() error {
	s.cancel()
	<-s.done
	return s.err
}

// Err returns the scan error once the scan has finished, and nil while it
// is still running.
func (s *HashStream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
