package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/Danconnolly/bsvlake-blockarchive/block"
)

const (
	// blockFileExt is the extension of every archived block file.
	blockFileExt = ".bin"

	// defaultListBuffer is the capacity of the hash delivery channel behind
	// BlockList. The scanner blocks once it is this far ahead of the
	// consumer and resumes as the consumer drains.
	defaultListBuffer = 1024
)

// FileArchive is a file-based block archive.
//
// Blocks are stored in a directory structure based on the block hash. The
// first directory level is the last two characters of the hex-encoded
// hash, the second level is the third- and fourth-last characters, and the
// block lives in a file named after the full hash with a ".bin" extension.
//
// Example: /31/c5/00000000000000000124a294b9e1e65224f0636ffd4dadac777bed5e709dc531.bin
//
// Block files stored at any other location are not recognised by the
// archive: they do not exist, and they do not enumerate.
type FileArchive struct {
	root       string
	dirPerm    os.FileMode
	filePerm   os.FileMode
	listBuffer int
}

// Compile-time interface check.
var _ BlockArchive = (*FileArchive)(nil)

// Option configures a FileArchive.
type Option func(*FileArchive)

// WithDirPermissions sets the mode used when creating shard directories.
func WithDirPermissions(mode os.FileMode) Option {
	return func(a *FileArchive) { a.dirPerm = mode }
}

// WithFilePermissions sets the mode used when creating block files.
func WithFilePermissions(mode os.FileMode) Option {
	return func(a *FileArchive) { a.filePerm = mode }
}

// WithListBuffer sets the capacity of the BlockList delivery channel.
func WithListBuffer(n int) Option {
	return func(a *FileArchive) { a.listBuffer = n }
}

// NewFileArchive opens a block archive rooted at an existing directory.
// The root is never created implicitly: an inaccessible path is an
// immediate error.
func NewFileArchive(root string, opts ...Option) (*FileArchive, error) {
	if root == "" {
		return nil, ErrInvalidRoot
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	a := &FileArchive{
		root:       root,
		dirPerm:    0700,
		filePerm:   0600,
		listBuffer: defaultListBuffer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Root returns the archive's root directory.
func (a *FileArchive) Root() string {
	return a.root
}

// canonicalPath is the one location a block with the given hash may occupy
// under root. The shard directories come from the trailing hex characters:
// proof-of-work drives the leading characters of a block hash toward zero,
// so the trailing ones spread entries evenly.
func canonicalPath(root string, hash *chainhash.Hash) string {
	s := hash.String()
	return filepath.Join(root, s[62:], s[60:62], s+blockFileExt)
}

// blockPath returns the canonical path for a hash. Every operation derives
// the location from this single function.
func (a *FileArchive) blockPath(hash *chainhash.Hash) string {
	return canonicalPath(a.root, hash)
}

// classifyReadErr maps a filesystem error on a read path to an archive
// error kind. Only absence becomes ErrBlockNotFound; anything unexpected
// is surfaced as an I/O failure, never swallowed.
func classifyReadErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrBlockNotFound
	}
	return fmt.Errorf("%w: %w", ErrIOFailure, err)
}

// classifyShortRead maps a short-read error to ErrNotEnoughData. The file
// exists but holds fewer bytes than the requested structure, which is
// corruption or truncation, not absence.
func classifyShortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrNotEnoughData, err)
	}
	return fmt.Errorf("%w: %w", ErrIOFailure, err)
}

// GetBlock returns a reader over the stored block bytes.
func (a *FileArchive) GetBlock(ctx context.Context, hash *chainhash.Hash) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.blockPath(hash))
	if err != nil {
		return nil, classifyReadErr(err)
	}
	return f, nil
}

// GetBlockFull loads a block completely into memory and decodes it.
func (a *FileArchive) GetBlockFull(ctx context.Context, hash *chainhash.Hash) (*block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(a.blockPath(hash))
	if err != nil {
		return nil, classifyReadErr(err)
	}
	return block.NewBlockFromBytes(raw)
}

// BlockExists reports whether a block is stored under hash.
func (a *FileArchive) BlockExists(ctx context.Context, hash *chainhash.Hash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(a.blockPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}

// StoreBlock persists the bytes read from r verbatim under hash.
//
// The target file is created with O_EXCL, so "create if absent, fail if
// present" is a single atomic filesystem operation and concurrent stores
// for the same hash cannot both succeed.
func (a *FileArchive) StoreBlock(ctx context.Context, hash *chainhash.Hash, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := a.blockPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), a.dirPerm); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, a.filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrBlockExists
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		// A truncated blob must not remain at the canonical path, where it
		// would satisfy BlockExists and block a retry.
		os.Remove(path)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// StoreBlockFull persists a block under the hash derived from its header.
func (a *FileArchive) StoreBlockFull(ctx context.Context, b *block.Block) error {
	hash, err := b.Hash()
	if err != nil {
		return err
	}
	return a.StoreBlock(ctx, &hash, bytes.NewReader(b.Bytes()))
}

// BlockSize returns the byte length of the stored block.
func (a *FileArchive) BlockSize(ctx context.Context, hash *chainhash.Hash) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(a.blockPath(hash))
	if err != nil {
		return 0, classifyReadErr(err)
	}
	return info.Size(), nil
}

// BlockTxCount returns the number of transactions in the stored block. It
// reads only the compact-size count directly after the header, not the
// transaction bodies.
func (a *FileArchive) BlockTxCount(ctx context.Context, hash *chainhash.Hash) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.Open(a.blockPath(hash))
	if err != nil {
		return 0, classifyReadErr(err)
	}
	defer f.Close()

	if _, err := f.Seek(block.HeaderSize, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	count, err := block.ReadCompactSize(f)
	if err != nil {
		return 0, classifyShortRead(err)
	}
	return count, nil
}

// BlockHeader reads exactly the header-length prefix and decodes it.
func (a *FileArchive) BlockHeader(ctx context.Context, hash *chainhash.Hash) (*block.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.blockPath(hash))
	if err != nil {
		return nil, classifyReadErr(err)
	}
	defer f.Close()

	buf := make([]byte, block.HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, classifyShortRead(err)
	}
	return block.ParseHeader(buf)
}

// BlockBytes reads length bytes starting at offset within the stored block.
func (a *FileArchive) BlockBytes(ctx context.Context, hash *chainhash.Hash, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.blockPath(hash))
	if err != nil {
		return nil, classifyReadErr(err)
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, classifyShortRead(err)
	}
	return buf, nil
}

// BlockList enumerates every correctly placed block in the archive. The
// scan runs in the background; the returned stream yields hashes as they
// are found. Cancelling ctx or calling Close on the stream terminates the
// scan.
func (a *FileArchive) BlockList(ctx context.Context) (*HashStream, error) {
	root := a.root
	return startHashStream(ctx, a.listBuffer, func(ctx context.Context, out chan<- chainhash.Hash) error {
		return scanBlocks(ctx, root, out)
	}), nil
}
