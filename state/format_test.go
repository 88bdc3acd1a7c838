package state

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	before := time.Now().UTC().Add(-time.Second)

	data, h, err := Encode("sms", 2, payload, false)
	require.NoError(t, err)
	assert.False(t, h.Compressed)

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, payload, snap.Payload)
	assert.Equal(t, "sms", snap.Header.Backend)
	assert.Equal(t, uint32(2), snap.Header.StateVersion)
	assert.Equal(t, h.ID, snap.Header.ID)
	assert.True(t, snap.Header.Created.After(before))
	assert.Equal(t, h.Created.UnixNano(), snap.Header.Created.UnixNano())
}

func TestEncodeDecode_Compressed(t *testing.T) {
	payload := bytes.Repeat([]byte{0, 0, 0, 1}, 4096)

	data, h, err := Encode("genesis", 1, payload, true)
	require.NoError(t, err)
	require.True(t, h.Compressed)
	assert.Less(t, len(data), len(payload))

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, payload, snap.Payload)
}

func TestEncode_IncompressibleStoredRaw(t *testing.T) {
	payload := make([]byte, 1024)
	rand.New(rand.NewSource(1)).Read(payload)

	data, h, err := Encode("nes", 1, payload, true)
	require.NoError(t, err)
	assert.False(t, h.Compressed)

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, payload, snap.Payload)
}

func TestEncode_RejectsBadTag(t *testing.T) {
	_, _, err := Encode("", 1, nil, false)
	assert.Error(t, err)
	_, _, err = Encode(string(bytes.Repeat([]byte{'x'}, maxTagLen+1)), 1, nil, false)
	assert.Error(t, err)

	_, _, err = Encode("sms", 1, make([]byte, MaxStateSize+1), false)
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	good, _, err := Encode("sms", 1, []byte("payload bytes"), false)
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9

	flipped := append([]byte(nil), good...)
	flipped[len(flipped)-1] ^= 0xff

	// withSize rewrites the uncompressed size field and the flags.
	withSize := func(size uint32, compressed bool) []byte {
		d := append([]byte(nil), good...)
		binary.LittleEndian.PutUint32(d[headerSize("sms")-8:], size)
		if compressed {
			binary.LittleEndian.PutUint16(d[6:], flagCompressed)
		}
		return d
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrCorrupt},
		{"bad magic", badMagic, ErrCorrupt},
		{"container version", badVersion, ErrIncompatibleVersion},
		{"truncated header", good[:20], ErrCorrupt},
		{"truncated payload", good[:len(good)-3], ErrCorrupt},
		{"checksum", flipped, ErrCorrupt},
		{"huge size", withSize(0xffffffff, false), ErrCorrupt},
		{"raw size mismatch", withSize(4, false), ErrCorrupt},
		{"compressed size over ratio", withSize(MaxStateSize, true), ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSnapshot_Check(t *testing.T) {
	data, _, err := Encode("sms", 2, []byte{1}, false)
	require.NoError(t, err)
	snap, err := Decode(data)
	require.NoError(t, err)

	assert.NoError(t, snap.Check("sms", 2))
	assert.ErrorIs(t, snap.Check("genesis", 2), ErrBackendMismatch)
	assert.ErrorIs(t, snap.Check("sms", 3), ErrIncompatibleVersion)
}
