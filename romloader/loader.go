// Package romloader reads media images from disk, unpacking ZIP, 7z, gzip,
// tar.gz and RAR archives, and derives the game ID used for save slots.
package romloader

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	emucore "github.com/user-none/emudriver/api"
)

// MaxSize caps the size of an image, archived or not.
const MaxSize = 8 * 1024 * 1024

var (
	// ErrNoMedia is returned when an archive holds no file with a known extension.
	ErrNoMedia = errors.New("no media file found in archive")
	// ErrUnsupportedFormat is returned for unrecognized files.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTooLarge is returned when an image exceeds MaxSize.
	ErrTooLarge = errors.New("file exceeds maximum size limit")
)

type format int

const (
	formatUnknown format = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
)

var magics = []struct {
	prefix []byte
	format format
}{
	{[]byte{0x50, 0x4B, 0x03, 0x04}, formatZIP},
	{[]byte{0x50, 0x4B, 0x05, 0x06}, formatZIP}, // empty zip
	{[]byte{0x52, 0x61, 0x72, 0x21}, formatRAR}, // "Rar!"
	{[]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, format7z},
	{[]byte{0x1F, 0x8B}, formatGzip},
}

var archiveExts = map[string]format{
	".zip": formatZIP,
	".7z":  format7z,
	".gz":  formatGzip,
	".tgz": formatGzip,
	".rar": formatRAR,
}

// GameID returns the CRC32 of data as eight lowercase hex digits.
func GameID(data []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}

// FromBytes wraps an in-memory image.
func FromBytes(name string, data []byte) emucore.Media {
	return emucore.Media{Name: name, Data: data, ID: GameID(data)}
}

// Load reads the image at path. Archives are detected by magic bytes, then
// by extension, and the first entry matching one of extensions is used.
// A plain file must carry one of the extensions.
func Load(path string, extensions []string) (emucore.Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return emucore.Media{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return emucore.Media{}, fmt.Errorf("failed to read file header: %w", err)
	}

	m := matcher(extensions)
	var (
		data []byte
		name string
	)
	switch detect(header[:n], path, m) {
	case formatRaw:
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return emucore.Media{}, fmt.Errorf("failed to seek file: %w", err)
		}
		data, err = readLimited(f)
		name = filepath.Base(path)
	case formatZIP:
		data, name, err = fromZIP(path, m)
	case format7z:
		data, name, err = from7z(path, m)
	case formatGzip:
		data, name, err = fromGzip(f, path, m)
	case formatRAR:
		data, name, err = fromRAR(path, m)
	default:
		return emucore.Media{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return emucore.Media{}, err
	}
	return FromBytes(name, data), nil
}

func detect(header []byte, path string, m func(string) bool) format {
	for _, magic := range magics {
		if bytes.HasPrefix(header, magic.prefix) {
			return magic.format
		}
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.gz") {
		return formatGzip
	}
	if f, ok := archiveExts[filepath.Ext(lower)]; ok {
		return f
	}
	if m(lower) {
		return formatRaw
	}
	return formatUnknown
}

// matcher reports whether a file name ends in one of extensions, ignoring case.
func matcher(extensions []string) func(string) bool {
	lowered := make([]string, len(extensions))
	for i, ext := range extensions {
		lowered[i] = strings.ToLower(ext)
	}
	return func(name string) bool {
		name = strings.ToLower(name)
		for _, ext := range lowered {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
		return false
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
