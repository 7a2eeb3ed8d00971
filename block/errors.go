package block

import "errors"

var (
	// ErrHeaderTooShort indicates the input is shorter than an encoded header.
	ErrHeaderTooShort = errors.New("block: header too short")

	// ErrBlockTooShort indicates the input ends before the transaction count.
	ErrBlockTooShort = errors.New("block: block too short")

	// ErrInvalidHash indicates a string does not encode a block hash.
	ErrInvalidHash = errors.New("block: invalid block hash")

	// ErrTxDecode indicates the transaction section of a block is malformed.
	ErrTxDecode = errors.New("block: transaction decode failed")
)
