package request

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = 0x5c
	k[31] = b
	return k
}

func fullFixture() *SwapRequest {
	return &SwapRequest{
		InputMint:        testKey(1),
		MainOutputMint:   testKey(2),
		ReflectionMint:   testKey(3),
		AmountIn:         1_000_000,
		MinMainOut:       950_000,
		MinReflectionOut: 10_000,
		MainLeg: &OpaqueCall{
			AccountCount: 2,
			Refs: []AccountRef{
				{Key: testKey(4), RequestedSigner: true, RequestedWritable: true},
				{Key: testKey(5), RequestedWritable: true},
			},
			Payload: []byte{0xde, 0xad, 0xbe, 0xef},
		},
		ReflectionLeg: &OpaqueCall{
			AccountCount: 1,
			Refs:         []AccountRef{{Key: testKey(6), RequestedWritable: true}},
			Payload:      []byte{0x01},
		},
		Encoding: EncodingFull,
	}
}

func indexedFixture() *SwapRequest {
	return &SwapRequest{
		InputMint:      testKey(1),
		MainOutputMint: testKey(2),
		ReflectionMint: testKey(3),
		AmountIn:       1_000_000,
		MinMainOut:     950_000,
		MainLeg: &OpaqueCall{
			AccountCount: 2,
			Refs: []AccountRef{
				// The indexed form carries no signer request, so every
				// decoded ref has RequestedSigner set.
				{Index: 0, RequestedSigner: true, RequestedWritable: true},
				{Index: 2, RequestedSigner: true},
			},
			Payload: []byte{0xde, 0xad},
		},
		Encoding: EncodingIndexed,
	}
}

func TestRoundTripFull(t *testing.T) {
	want := fullFixture()

	data, err := Encode(want, EncodingFull)
	require.NoError(t, err)

	got, err := Decode(data, EncodingFull, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRoundTripIndexed(t *testing.T) {
	want := indexedFixture()

	data, err := Encode(want, EncodingIndexed)
	require.NoError(t, err)

	got, err := Decode(data, EncodingIndexed, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndexedSmallerThanFull(t *testing.T) {
	req := fullFixture()

	full, err := Encode(req, EncodingFull)
	require.NoError(t, err)

	// Re-expressing the same legs as table references shrinks each account
	// record from 34 bytes to 2.
	req.MainLeg.Refs[0].Index = 0
	req.MainLeg.Refs[1].Index = 1
	req.ReflectionLeg.Refs[0].Index = 2
	indexed, err := Encode(req, EncodingIndexed)
	require.NoError(t, err)

	assert.Equal(t, len(full)-len(indexed), 3*32)
}

func TestDecodeIndexOutOfRange(t *testing.T) {
	req := &SwapRequest{
		InputMint:      testKey(1),
		MainOutputMint: testKey(2),
		AmountIn:       1,
		MainLeg: &OpaqueCall{
			AccountCount: 1,
			Refs:         []AccountRef{{Index: 5, RequestedSigner: true}},
		},
		Encoding: EncodingIndexed,
	}
	data, err := Encode(req, EncodingIndexed)
	require.NoError(t, err)

	// Index 5 against a three-entry table must fail, not clamp.
	_, err = Decode(data, EncodingIndexed, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Decode(data, EncodingIndexed, 6)
	assert.NoError(t, err)
}

func TestDecodeZeroAmount(t *testing.T) {
	req := fullFixture()
	req.AmountIn = 0
	data, err := Encode(req, EncodingFull)
	require.NoError(t, err)

	_, err = Decode(data, EncodingFull, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestDecodeAccountCountMismatch(t *testing.T) {
	req := fullFixture()
	req.MainLeg.AccountCount = 3 // two refs supplied
	data, err := Encode(req, EncodingFull)
	require.NoError(t, err)

	_, err = Decode(data, EncodingFull, 0)
	assert.ErrorIs(t, err, ErrAccountCountMismatch)
}

func TestDecodeTrailingBytes(t *testing.T) {
	data, err := Encode(fullFixture(), EncodingFull)
	require.NoError(t, err)

	_, err = Decode(append(data, 0x00), EncodingFull, 0)
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestDecodeTruncated(t *testing.T) {
	data, err := Encode(fullFixture(), EncodingFull)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-3], EncodingFull, 0)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(nil, EncodingFull, 0)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeFixedHeaderLayout(t *testing.T) {
	req := &SwapRequest{
		InputMint:         testKey(1),
		MainOutputMint:    testKey(2),
		ReflectionMint:    testKey(3),
		AmountIn:          0x1122334455667788,
		MinMainOut:        7,
		MinReflectionOut:  9,
		DisableReflection: true,
		Encoding:          EncodingFull,
	}
	data, err := Encode(req, EncodingFull)
	require.NoError(t, err)

	// mints (3x32) + u64 amounts (3x8) + bool + two option tags
	require.Len(t, data, 123)
	assert.Equal(t, testKey(1).Bytes(), data[0:32])
	assert.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(data[96:104]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[104:112]))
	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(data[112:120]))
	assert.Equal(t, byte(1), data[120], "disable_reflection flag")
	assert.Equal(t, byte(0), data[121], "main leg option tag")
	assert.Equal(t, byte(0), data[122], "reflection leg option tag")
}

func TestEncodingString(t *testing.T) {
	assert.Equal(t, "full", EncodingFull.String())
	assert.Equal(t, "indexed", EncodingIndexed.String())
	assert.Equal(t, "unknown", Encoding(9).String())
}
