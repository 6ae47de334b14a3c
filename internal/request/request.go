package request

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Encoding selects how a leg's account references travel on the wire.
type Encoding int

const (
	// EncodingFull carries 34-byte records: full key plus requested
	// signer/writable flags.
	EncodingFull Encoding = iota
	// EncodingIndexed carries 2-byte {index, wanted-writable} pairs that
	// reference the transaction's own account table. Roughly a 94-97%
	// size reduction per account, which matters because the encoded
	// request shares the transaction-size ceiling with everything else.
	EncodingIndexed
)

func (e Encoding) String() string {
	switch e {
	case EncodingFull:
		return "full"
	case EncodingIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Decode and shape errors.
var (
	ErrZeroAmount           = errors.New("amount must be greater than zero")
	ErrIndexOutOfRange      = errors.New("account index out of range")
	ErrAccountCountMismatch = errors.New("account count does not match reference list")
	ErrTrailingBytes        = errors.New("trailing bytes after request")
	ErrMalformed            = errors.New("malformed request")
)

// AccountRef is one decoded account reference of a leg.
//
// In the full encoding Key carries the address and the Requested* flags are
// the caller's stated wishes. In the indexed encoding only Index and
// RequestedWritable exist on the wire; the form carries no signer request,
// so RequestedSigner decodes as true and the granted bit alone decides.
type AccountRef struct {
	Key               solana.PublicKey
	Index             uint8
	RequestedSigner   bool
	RequestedWritable bool
}

// OpaqueCall is one leg of the swap: a declared account count, the account
// references, and the target program's own instruction payload, which this
// engine never interprets.
type OpaqueCall struct {
	AccountCount uint16
	Refs         []AccountRef
	Payload      []byte
}

// SwapRequest is the decoded caller-supplied description of the swap to
// forward.
type SwapRequest struct {
	InputMint         solana.PublicKey
	MainOutputMint    solana.PublicKey
	ReflectionMint    solana.PublicKey
	AmountIn          uint64
	MinMainOut        uint64
	MinReflectionOut  uint64
	DisableReflection bool
	MainLeg           *OpaqueCall
	ReflectionLeg     *OpaqueCall

	Encoding Encoding
}
