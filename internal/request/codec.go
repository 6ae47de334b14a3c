package request

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// Wire layout, borsh rules: little-endian fixed fields, u32 length prefixes
// on sequences, one-byte tags on optional values. Pointer fields map to
// borsh options.

type fullRef struct {
	Key        [32]uint8
	IsSigner   bool
	IsWritable bool
}

type fullCall struct {
	AccountCount uint16
	Refs         []fullRef
	Payload      []byte
}

type fullRequest struct {
	InputMint         [32]uint8
	MainOutputMint    [32]uint8
	ReflectionMint    [32]uint8
	AmountIn          uint64
	MinMainOut        uint64
	MinReflectionOut  uint64
	DisableReflection bool
	MainLeg           *fullCall
	ReflectionLeg     *fullCall
}

type indexedRef struct {
	Index          uint8
	WantedWritable uint8
}

type indexedCall struct {
	AccountCount uint16
	Refs         []indexedRef
	Payload      []byte
}

type indexedRequest struct {
	InputMint         [32]uint8
	MainOutputMint    [32]uint8
	ReflectionMint    [32]uint8
	AmountIn          uint64
	MinMainOut        uint64
	MinReflectionOut  uint64
	DisableReflection bool
	MainLeg           *indexedCall
	ReflectionLeg     *indexedCall
}

// Decode parses an encoded swap request. tableLen is the length of the
// externally supplied account table; indexed references beyond it fail here
// rather than being clamped. Trailing bytes after the record are rejected.
func Decode(data []byte, enc Encoding, tableLen int) (*SwapRequest, error) {
	var req *SwapRequest
	switch enc {
	case EncodingFull:
		var wire fullRequest
		if err := borsh.Deserialize(&wire, data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = &SwapRequest{
			InputMint:         solana.PublicKey(wire.InputMint),
			MainOutputMint:    solana.PublicKey(wire.MainOutputMint),
			ReflectionMint:    solana.PublicKey(wire.ReflectionMint),
			AmountIn:          wire.AmountIn,
			MinMainOut:        wire.MinMainOut,
			MinReflectionOut:  wire.MinReflectionOut,
			DisableReflection: wire.DisableReflection,
			MainLeg:           fullCallToModel(wire.MainLeg),
			ReflectionLeg:     fullCallToModel(wire.ReflectionLeg),
			Encoding:          EncodingFull,
		}
	case EncodingIndexed:
		var wire indexedRequest
		if err := borsh.Deserialize(&wire, data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		req = &SwapRequest{
			InputMint:         solana.PublicKey(wire.InputMint),
			MainOutputMint:    solana.PublicKey(wire.MainOutputMint),
			ReflectionMint:    solana.PublicKey(wire.ReflectionMint),
			AmountIn:          wire.AmountIn,
			MinMainOut:        wire.MinMainOut,
			MinReflectionOut:  wire.MinReflectionOut,
			DisableReflection: wire.DisableReflection,
			MainLeg:           indexedCallToModel(wire.MainLeg),
			ReflectionLeg:     indexedCallToModel(wire.ReflectionLeg),
			Encoding:          EncodingIndexed,
		}
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrMalformed, enc)
	}

	if err := validate(req, tableLen); err != nil {
		return nil, err
	}

	// The encoding is canonical, so a re-encode that comes up short means
	// the input carried trailing bytes.
	reenc, err := Encode(req, enc)
	if err != nil {
		return nil, err
	}
	if len(reenc) != len(data) {
		return nil, ErrTrailingBytes
	}
	return req, nil
}

// Encode serializes a swap request to its wire form.
func Encode(req *SwapRequest, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingFull:
		wire := fullRequest{
			InputMint:         req.InputMint,
			MainOutputMint:    req.MainOutputMint,
			ReflectionMint:    req.ReflectionMint,
			AmountIn:          req.AmountIn,
			MinMainOut:        req.MinMainOut,
			MinReflectionOut:  req.MinReflectionOut,
			DisableReflection: req.DisableReflection,
			MainLeg:           fullCallFromModel(req.MainLeg),
			ReflectionLeg:     fullCallFromModel(req.ReflectionLeg),
		}
		return borsh.Serialize(wire)
	case EncodingIndexed:
		wire := indexedRequest{
			InputMint:         req.InputMint,
			MainOutputMint:    req.MainOutputMint,
			ReflectionMint:    req.ReflectionMint,
			AmountIn:          req.AmountIn,
			MinMainOut:        req.MinMainOut,
			MinReflectionOut:  req.MinReflectionOut,
			DisableReflection: req.DisableReflection,
			MainLeg:           indexedCallFromModel(req.MainLeg),
			ReflectionLeg:     indexedCallFromModel(req.ReflectionLeg),
		}
		return borsh.Serialize(wire)
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrMalformed, enc)
	}
}

func validate(req *SwapRequest, tableLen int) error {
	if req.AmountIn == 0 {
		return ErrZeroAmount
	}
	for _, leg := range []*OpaqueCall{req.ReflectionLeg, req.MainLeg} {
		if leg == nil {
			continue
		}
		if int(leg.AccountCount) != len(leg.Refs) {
			return fmt.Errorf("%w: declared %d, got %d", ErrAccountCountMismatch, leg.AccountCount, len(leg.Refs))
		}
		if req.Encoding == EncodingIndexed {
			for _, ref := range leg.Refs {
				if int(ref.Index) >= tableLen {
					return fmt.Errorf("%w: index %d, table has %d entries", ErrIndexOutOfRange, ref.Index, tableLen)
				}
			}
		}
	}
	return nil
}

func fullCallToModel(c *fullCall) *OpaqueCall {
	if c == nil {
		return nil
	}
	refs := make([]AccountRef, len(c.Refs))
	for i, r := range c.Refs {
		refs[i] = AccountRef{
			Key:               solana.PublicKey(r.Key),
			RequestedSigner:   r.IsSigner,
			RequestedWritable: r.IsWritable,
		}
	}
	return &OpaqueCall{AccountCount: c.AccountCount, Refs: refs, Payload: c.Payload}
}

func fullCallFromModel(c *OpaqueCall) *fullCall {
	if c == nil {
		return nil
	}
	refs := make([]fullRef, len(c.Refs))
	for i, r := range c.Refs {
		refs[i] = fullRef{Key: r.Key, IsSigner: r.RequestedSigner, IsWritable: r.RequestedWritable}
	}
	return &fullCall{AccountCount: c.AccountCount, Refs: refs, Payload: c.Payload}
}

func indexedCallToModel(c *indexedCall) *OpaqueCall {
	if c == nil {
		return nil
	}
	refs := make([]AccountRef, len(c.Refs))
	for i, r := range c.Refs {
		refs[i] = AccountRef{
			Index: r.Index,
			// The indexed form carries no signer request; the granted
			// bit alone decides.
			RequestedSigner:   true,
			RequestedWritable: r.WantedWritable != 0,
		}
	}
	return &OpaqueCall{AccountCount: c.AccountCount, Refs: refs, Payload: c.Payload}
}

func indexedCallFromModel(c *OpaqueCall) *indexedCall {
	if c == nil {
		return nil
	}
	refs := make([]indexedRef, len(c.Refs))
	for i, r := range c.Refs {
		w := uint8(0)
		if r.RequestedWritable {
			w = 1
		}
		refs[i] = indexedRef{Index: r.Index, WantedWritable: w}
	}
	return &indexedCall{AccountCount: c.AccountCount, Refs: refs, Payload: c.Payload}
}
