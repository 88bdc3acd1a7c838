// Package state implements save states: the on-disk snapshot format, the
// rewind history ring, named slot stores and the manager tying them to a
// running backend.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// ContainerVersion is the version of the header layout written by Encode.
const ContainerVersion uint16 = 1

var magic = [4]byte{'E', 'M', 'S', 'T'}

const flagCompressed uint16 = 1 << 0

// maxTagLen bounds the backend identity tag stored in the header.
const maxTagLen = 64

// MaxStateSize bounds the uncompressed payload of a snapshot.
const MaxStateSize = 64 << 20

// maxLZ4Ratio is the largest expansion an lz4 block can decode to.
const maxLZ4Ratio = 255

var (
	// ErrCorrupt is returned for data that is not a snapshot, is truncated
	// or fails its checksum.
	ErrCorrupt = errors.New("corrupt save state")
	// ErrIncompatibleVersion is returned when the container or backend
	// state version differs from what the reader supports.
	ErrIncompatibleVersion = errors.New("incompatible save state version")
	// ErrBackendMismatch is returned when a snapshot was written by a
	// different backend.
	ErrBackendMismatch = errors.New("save state belongs to a different backend")
)

// Header describes a serialized snapshot.
type Header struct {
	Backend      string // backend identity tag (SystemInfo.Name)
	StateVersion uint32 // backend state format version
	Created      time.Time
	ID           uuid.UUID
	Compressed   bool
	CRC          uint32 // CRC32 (IEEE) of the uncompressed payload
	Size         uint32 // uncompressed payload size
}

// Snapshot is a decoded save state.
type Snapshot struct {
	Header  Header
	Payload []byte
}

// Check verifies that the snapshot can be restored into a backend with the
// given identity and state version.
func (s *Snapshot) Check(backend string, version uint32) error {
	if s.Header.Backend != backend {
		return fmt.Errorf("%w: written by %q, running %q", ErrBackendMismatch, s.Header.Backend, backend)
	}
	if s.Header.StateVersion != version {
		return fmt.Errorf("%w: state version %d, backend expects %d", ErrIncompatibleVersion, s.Header.StateVersion, version)
	}
	return nil
}

// Encode serializes a payload with a freshly stamped header. When compress
// is set the payload is lz4 block compressed unless that would not make it
// smaller.
func Encode(backend string, version uint32, payload []byte, compress bool) ([]byte, Header, error) {
	if len(backend) == 0 || len(backend) > maxTagLen {
		return nil, Header{}, fmt.Errorf("invalid backend tag %q", backend)
	}
	if len(payload) > MaxStateSize {
		return nil, Header{}, fmt.Errorf("state of %d bytes exceeds %d", len(payload), MaxStateSize)
	}
	h := Header{
		Backend:      backend,
		StateVersion: version,
		Created:      time.Now().UTC(),
		ID:           uuid.New(),
		CRC:          crc32.ChecksumIEEE(payload),
		Size:         uint32(len(payload)),
	}

	body := payload
	if compress && len(payload) > 0 {
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			return nil, Header{}, fmt.Errorf("compress state: %w", err)
		}
		// n == 0 means the payload is incompressible.
		if n > 0 && n < len(payload) {
			body = dst[:n]
			h.Compressed = true
		}
	}

	var flags uint16
	if h.Compressed {
		flags |= flagCompressed
	}

	var buf bytes.Buffer
	buf.Grow(headerSize(backend) + len(body))
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, ContainerVersion)
	binary.Write(&buf, binary.LittleEndian, flags)
	buf.WriteByte(byte(len(backend)))
	buf.WriteString(backend)
	binary.Write(&buf, binary.LittleEndian, h.StateVersion)
	binary.Write(&buf, binary.LittleEndian, h.Created.UnixNano())
	buf.Write(h.ID[:])
	binary.Write(&buf, binary.LittleEndian, h.CRC)
	binary.Write(&buf, binary.LittleEndian, h.Size)
	binary.Write(&buf, binary.LittleEndian, uint32(len(body)))
	buf.Write(body)

	return buf.Bytes(), h, nil
}

func headerSize(backend string) int {
	// magic, version, flags, tag length, tag, state version, created,
	// id, crc, size, stored size
	return 4 + 2 + 2 + 1 + len(backend) + 4 + 8 + 16 + 4 + 4 + 4
}

// DecodeHeader parses only the header of an encoded snapshot.
func DecodeHeader(data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < 9 || !bytes.Equal(data[:4], magic[:]) {
		return h, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	ver := binary.LittleEndian.Uint16(data[4:])
	if ver != ContainerVersion {
		return h, nil, fmt.Errorf("%w: container version %d", ErrIncompatibleVersion, ver)
	}
	flags := binary.LittleEndian.Uint16(data[6:])
	tagLen := int(data[8])
	if len(data) < headerSize("")+tagLen {
		return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	off := 9
	h.Backend = string(data[off : off+tagLen])
	off += tagLen
	h.StateVersion = binary.LittleEndian.Uint32(data[off:])
	off += 4
	h.Created = time.Unix(0, int64(binary.LittleEndian.Uint64(data[off:]))).UTC()
	off += 8
	copy(h.ID[:], data[off:off+16])
	off += 16
	h.CRC = binary.LittleEndian.Uint32(data[off:])
	off += 4
	h.Size = binary.LittleEndian.Uint32(data[off:])
	off += 4
	stored := binary.LittleEndian.Uint32(data[off:])
	off += 4
	h.Compressed = flags&flagCompressed != 0

	body := data[off:]
	if uint32(len(body)) != stored {
		return h, nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(body), stored)
	}
	if h.Size > MaxStateSize {
		return h, nil, fmt.Errorf("%w: state size %d exceeds %d", ErrCorrupt, h.Size, MaxStateSize)
	}
	if !h.Compressed && h.Size != stored {
		return h, nil, fmt.Errorf("%w: payload size mismatch", ErrCorrupt)
	}
	if h.Compressed && uint64(h.Size) > uint64(stored)*maxLZ4Ratio {
		return h, nil, fmt.Errorf("%w: state size %d cannot come from %d compressed bytes", ErrCorrupt, h.Size, stored)
	}
	return h, body, nil
}

// Decode parses and verifies an encoded snapshot.
func Decode(data []byte) (*Snapshot, error) {
	h, body, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	payload := body
	if h.Compressed {
		payload = make([]byte, h.Size)
		n, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		payload = payload[:n]
	} else {
		payload = append([]byte(nil), body...)
	}

	if uint32(len(payload)) != h.Size {
		return nil, fmt.Errorf("%w: payload size mismatch", ErrCorrupt)
	}
	if crc32.ChecksumIEEE(payload) != h.CRC {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return &Snapshot{Header: h, Payload: payload}, nil
}
