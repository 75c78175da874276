package snapshot

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	inputs := [][]byte{
		{},
		{0x00},
		{0xff, 0xfe, 0xfd},
		[]byte("SQLite format 3\x00"),
		bytes.Repeat([]byte{0x00}, 4096),
	}
	for n := 1; n < 300; n += 7 {
		b := make([]byte, n)
		rng.Read(b)
		inputs = append(inputs, b)
	}

	for _, in := range inputs {
		out, err := Decode(Encode(in))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(in, out), "round trip changed %d bytes", len(in))
	}
}

func TestDecode_TrimsWhitespace(t *testing.T) {
	out, err := Decode("  " + Encode([]byte("hello")) + "\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{"!!!", "abc", "ab=c"} {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrDecode, "input %q", in)
	}
}

func TestEncode_TextSafe(t *testing.T) {
	text := Encode([]byte{0x00, 0x0a, 0x0d, 0xff, '"', '\\'})
	for _, r := range text {
		assert.True(t, r < 0x7f && r > 0x20, "non-printable rune %q", r)
	}
}
