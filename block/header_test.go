package block

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genesisHeader builds the well-known genesis block header.
func genesisHeader(t *testing.T) *Header {
	t.Helper()
	merkle, err := ParseHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	require.NoError(t, err)
	return &Header{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: *merkle,
		Timestamp:  1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}
}

// --- Serialize / ParseHeader tests ---

func TestHeaderRoundTrip(t *testing.T) {
	h := genesisHeader(t)
	raw := h.Serialize()
	require.Len(t, raw, HeaderSize)

	parsed, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHeader_TooShort(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"one byte", []byte{0x01}},
		{"one short", make([]byte, HeaderSize-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data)
			assert.ErrorIs(t, err, ErrHeaderTooShort)
		})
	}
}

func TestParseHeader_IgnoresTrailingBytes(t *testing.T) {
	h := genesisHeader(t)
	raw := append(h.Serialize(), 0xde, 0xad, 0xbe, 0xef)

	parsed, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestSerialize_FieldLayout(t *testing.T) {
	h := genesisHeader(t)
	raw := h.Serialize()

	// version, little-endian
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, raw[0:4])
	// prev block is all zero for genesis
	assert.Equal(t, bytes.Repeat([]byte{0x00}, 32), raw[4:36])
	// nonce 2083236893 = 0x7c2bac1d, little-endian
	assert.Equal(t, []byte{0x1d, 0xac, 0x2b, 0x7c}, raw[76:80])
}

// --- Hash tests ---

func TestHeaderHash_Genesis(t *testing.T) {
	h := genesisHeader(t)
	assert.Equal(t, "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f", h.Hash().String())
}

func TestHeaderHash_Deterministic(t *testing.T) {
	h := genesisHeader(t)
	assert.Equal(t, h.Hash(), h.Hash())

	h.Nonce++
	changed := h.Hash()
	h.Nonce--
	assert.NotEqual(t, h.Hash(), changed)
}
