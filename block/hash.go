package block

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// HashHexLen is the length of a hex-encoded block hash.
const HashHexLen = chainhash.HashSize * 2

// ParseHash parses a 64-character hex string into a block hash.
//
// The string must encode exactly 32 bytes; shorter or longer input is
// rejected rather than padded. Hex rendering of a block hash is
// byte-reversed relative to the in-memory digest, so the string is reversed
// during decoding, matching chainhash.Hash.String.
func ParseHash(s string) (*chainhash.Hash, error) {
	if len(s) != HashHexLen {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidHash, HashHexLen, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	hash, err := chainhash.NewHash(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return hash, nil
}
