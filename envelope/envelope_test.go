package envelope

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestPushData_Tiers(t *testing.T) {
	tests := []struct {
		n      int
		prefix []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{75, []byte{0x4b}},
		{76, []byte{0x4c, 76}},
		{255, []byte{0x4c, 0xff}},
		{256, []byte{0x4d, 0x00, 0x01}},
		{65535, []byte{0x4d, 0xff, 0xff}},
	}
	for _, tt := range tests {
		data := bytes.Repeat([]byte{0xaa}, tt.n)
		out, err := PushData(data)
		require.NoError(t, err, "n=%d", tt.n)
		if tt.n == 0 {
			assert.Equal(t, []byte{0x00}, out)
			continue
		}
		assert.Equal(t, tt.prefix, out[:len(tt.prefix)], "n=%d", tt.n)
		assert.Equal(t, data, out[len(tt.prefix):], "n=%d", tt.n)
		assert.Equal(t, len(out), PushSize(tt.n), "n=%d", tt.n)
	}

	_, err := PushData(make([]byte, 65536))
	assert.ErrorIs(t, err, ErrEncoding)
	assert.Equal(t, -1, PushSize(65536))
}

func TestNumber(t *testing.T) {
	b, err := Number(0).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{script.Op0}, b)

	b, err = Number(16).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{script.Op16}, b)

	b, err = Number(17).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 17}, b)

	b, err = Number(128).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x80, 0x00}, b)

	b, err = Number(2016).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xe0, 0x07}, b)

	for _, n := range []int{0, 1, 16, 17, 127, 128, 255, 256, 2016, 70000} {
		got, ok := Number(n).AsNumber()
		require.True(t, ok)
		assert.Equal(t, n, got)
	}
}

func TestCodec_BuildLayout(t *testing.T) {
	codec := NewCodec(4)
	env, err := codec.Build([]byte("abcdefghij"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, 3, env.ChunkCount)
	require.Len(t, env.Body, HeaderLen+6)

	assert.Equal(t, []byte("ord"), env.Body[0].Data)
	n, ok := env.Body[1].AsNumber()
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, append([]byte{0x01}, "text/plain"...), env.Body[2].Data)
	assert.Empty(t, env.Body[3].Data)

	// Chunks appear in descending index order.
	wantIdx := []int{2, 1, 0}
	wantData := [][]byte{[]byte("ij"), []byte("efgh"), []byte("abcd")}
	for i, pair := range env.Pairs() {
		idx, ok := pair[0].AsNumber()
		require.True(t, ok)
		assert.Equal(t, wantIdx[i], idx)
		assert.Equal(t, wantData[i], pair[1].Data)
	}
	assert.True(t, env.Body.PushOnly())

	raw, err := env.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{script.OpFALSE, script.OpIF}, raw[:2])
	assert.Equal(t, byte(script.OpENDIF), raw[len(raw)-1])
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(DefaultChunkSize)
	sizes := []int{1, 75, 76, 519, 520, 521, 5000, 70000}
	for _, size := range sizes {
		payload := randomPayload(t, size)
		raw, err := codec.Encode(payload, "image/png")
		require.NoError(t, err)

		ins, err := Decode(raw)
		require.NoError(t, err, "size=%d", size)
		assert.Equal(t, payload, ins.Payload, "size=%d", size)
		assert.Equal(t, "image/png", ins.ContentType)
		assert.Equal(t, (size+DefaultChunkSize-1)/DefaultChunkSize, ins.ChunkCount)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	codec := NewCodec(0)
	payload := randomPayload(t, 3000)
	a, err := codec.Encode(payload, "image/webp")
	require.NoError(t, err)
	b, err := codec.Encode(payload, "image/webp")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCodec_EncodingErrors(t *testing.T) {
	codec := NewCodec(0)

	_, err := codec.Encode(nil, "image/png")
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = codec.Encode([]byte{1}, "")
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = codec.Encode([]byte{1}, string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrEncoding)

	big := &Codec{ChunkSize: 70000}
	_, err = big.Encode([]byte{1}, "image/png")
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestDecode_WithLockingPrefix(t *testing.T) {
	codec := NewCodec(0)
	payload := randomPayload(t, 1200)
	raw, err := codec.Encode(payload, "image/gif")
	require.NoError(t, err)

	prefix := []byte{script.OpDUP, script.OpHASH160, 0x14}
	prefix = append(prefix, bytes.Repeat([]byte{0x11}, 20)...)
	prefix = append(prefix, script.OpEQUALVERIFY, script.OpCHECKSIG)

	ins, err := Decode(append(prefix, raw...))
	require.NoError(t, err)
	assert.Equal(t, payload, ins.Payload)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{script.OpDUP, script.OpHASH160})
	assert.ErrorIs(t, err, ErrNoEnvelope)

	codec := NewCodec(4)
	env, err := codec.Build([]byte("abcdefgh"), "text/plain")
	require.NoError(t, err)

	t.Run("missing end marker", func(t *testing.T) {
		raw, err := env.Bytes()
		require.NoError(t, err)
		_, err = Decode(raw[:len(raw)-1])
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing chunk", func(t *testing.T) {
		body := append(Elements{}, env.Body[:len(env.Body)-2]...)
		_, err := DecodeBody(body)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("duplicate index", func(t *testing.T) {
		body := append(Elements{}, env.Body...)
		body[HeaderLen+2] = Number(1)
		_, err := DecodeBody(body)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestValidateSize(t *testing.T) {
	codec := NewCodec(0)

	check := codec.ValidateSize(make([]byte, 1000))
	assert.True(t, check.Valid)
	assert.Empty(t, check.Warning)
	assert.Equal(t, 2, check.ChunkCount)

	check = codec.ValidateSize(make([]byte, RecommendedPayloadSize+1))
	assert.True(t, check.Valid)
	assert.NotEmpty(t, check.Warning)

	check = codec.ValidateSize(make([]byte, MaxPayloadSize+1))
	assert.False(t, check.Valid)
	assert.NotEmpty(t, check.Reason)
	assert.ErrorIs(t, codec.ValidatePayload(make([]byte, MaxPayloadSize+1)), ErrValidation)

	assert.NoError(t, codec.ValidatePayload(make([]byte, MaxPayloadSize)))
}

func TestEstimateSize(t *testing.T) {
	codec := NewCodec(0)
	payload := randomPayload(t, 2000)
	est, err := codec.EstimateSize(payload, "image/png")
	require.NoError(t, err)

	raw, err := codec.Encode(payload, "image/png")
	require.NoError(t, err)
	assert.Greater(t, est, len(raw))
	assert.Less(t, est, len(raw)+300)
}

func TestSplitIntoChunks(t *testing.T) {
	chunks, err := SplitIntoChunks([]byte("abcdefg"), 3)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("def"), []byte("g")}, chunks)

	_, err = SplitIntoChunks([]byte("a"), 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestInscriptionIDs(t *testing.T) {
	txid := "6a4f2bd34c5e1f2b0e5e8c9a1f4d7c2b9e0a3b6c8d1e4f7a0b3c6d9e2f5a8b1c"
	assert.Equal(t, txid+"i0", InscriptionID(txid))
	assert.Equal(t, txid+":0:0", LegacyInscriptionID(txid))

	for _, id := range []string{InscriptionID(txid), LegacyInscriptionID(txid)} {
		got, vout, err := ParseInscriptionID(id)
		require.NoError(t, err)
		assert.Equal(t, txid, got)
		assert.Equal(t, uint32(0), vout)
	}

	_, _, err := ParseInscriptionID("nope")
	assert.Error(t, err)

	pending := PendingInscriptionID([]byte("hello"))
	assert.Equal(t, PendingInscriptionID([]byte("hello")), pending)
	assert.Contains(t, pending, "pending_")
}

func TestParseElements(t *testing.T) {
	elems := Elements{Opcode(script.OpFALSE), Opcode(script.OpIF), Push([]byte("ord")), Push(make([]byte, 300)), Opcode(script.OpENDIF)}
	raw, err := elems.Bytes()
	require.NoError(t, err)

	parsed, err := ParseElements(raw)
	require.NoError(t, err)
	again, err := parsed.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
	assert.False(t, parsed.PushOnly())
	assert.True(t, parsed[2:4].PushOnly())
}
