package block

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Block holds the verbatim serialized form of a block: a fixed-size header,
// a compact-size transaction count, and the transaction bytes. The raw
// encoding is never modified; the accessors decode views of it on demand.
type Block struct {
	raw []byte
}

// NewBlockFromBytes wraps raw block bytes. It verifies that a complete
// header and transaction count are present but does not decode the
// transaction bodies.
func NewBlockFromBytes(raw []byte) (*Block, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockTooShort, len(raw))
	}
	if _, err := ReadCompactSize(bytes.NewReader(raw[HeaderSize:])); err != nil {
		return nil, fmt.Errorf("%w: truncated transaction count", ErrBlockTooShort)
	}
	return &Block{raw: raw}, nil
}

// AssembleBlock builds a block from a header and raw transaction encodings.
func AssembleBlock(h *Header, txs [][]byte) *Block {
	raw := h.Serialize()
	raw = AppendCompactSize(raw, uint64(len(txs)))
	for _, tx := range txs {
		raw = append(raw, tx...)
	}
	return &Block{raw: raw}
}

// Bytes returns the verbatim serialized block.
func (b *Block) Bytes() []byte {
	return b.raw
}

// Size returns the serialized length in bytes.
func (b *Block) Size() int64 {
	return int64(len(b.raw))
}

// Header decodes the block's header.
func (b *Block) Header() (*Header, error) {
	return ParseHeader(b.raw)
}

// Hash returns the block's identifying hash, derived from its header.
func (b *Block) Hash() (chainhash.Hash, error) {
	h, err := b.Header()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return h.Hash(), nil
}

// TxCount decodes the compact-size transaction count that follows the header.
func (b *Block) TxCount() (uint64, error) {
	count, err := ReadCompactSize(bytes.NewReader(b.raw[HeaderSize:]))
	if err != nil {
		return 0, fmt.Errorf("%w: truncated transaction count", ErrBlockTooShort)
	}
	return count, nil
}

// Transactions decodes every transaction in the block.
func (b *Block) Transactions() ([]*transaction.Transaction, error) {
	r := bytes.NewReader(b.raw[HeaderSize:])
	count, err := ReadCompactSize(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated transaction count", ErrBlockTooShort)
	}
	// Every transaction occupies at least one byte, so a count beyond the
	// remaining length cannot be satisfied. This also bounds the allocation.
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: count %d exceeds %d remaining bytes", ErrTxDecode, count, r.Len())
	}

	txs := make([]*transaction.Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		tx := &transaction.Transaction{}
		if _, err := tx.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %w", ErrTxDecode, i, err)
		}
		txs = append(txs, tx)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d transactions", ErrTxDecode, r.Len(), count)
	}
	return txs, nil
}
