// Package gamedb reads RetroArch RDB game databases and looks games up by
// the CRC32 game ID used for save slots.
//
// An RDB file is a 16 byte header followed by a stream of MessagePack maps,
// one per game, terminated by nil.
package gamedb

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	emucore "github.com/user-none/emudriver/api"
)

const headerSize = 0x10

// ErrTruncated is returned when the database ends inside a record. The
// entries read before the damage are still returned.
var ErrTruncated = errors.New("gamedb: truncated record")

// Entry is one game of the database.
type Entry struct {
	Name         string // full No-Intro name, e.g. "Sonic the Hedgehog (USA, Europe)"
	Description  string
	Genre        string
	Developer    string
	Publisher    string
	Franchise    string
	Serial       string
	ROMName      string
	ReleaseYear  uint
	ReleaseMonth uint
	Size         uint64
	CRC32        uint32
	MD5          string // lowercase hex
}

// GameID returns the entry's CRC32 in the format of romloader.GameID.
func (e Entry) GameID() string {
	return fmt.Sprintf("%08x", e.CRC32)
}

// DisplayName returns the name without region and revision tags.
func (e Entry) DisplayName() string {
	if i := strings.Index(e.Name, " ("); i > 0 {
		return strings.TrimSpace(e.Name[:i])
	}
	return e.Name
}

// Region returns the video region implied by the name's region tag.
// Europe maps to PAL; USA, Japan and World to NTSC. The bool is false
// when the name carries no known tag.
func (e Entry) Region() (emucore.Region, bool) {
	tags := regionTags(e.Name)
	switch {
	case tags["usa"] || tags["us"]:
		return emucore.RegionNTSC, true
	case tags["europe"] || tags["eu"]:
		return emucore.RegionPAL, true
	case tags["japan"] || tags["jp"] || tags["world"]:
		return emucore.RegionNTSC, true
	}
	return emucore.RegionNTSC, false
}

// regionTags returns the lowercased comma separated words of the first
// parenthesized group of name.
func regionTags(name string) map[string]bool {
	start := strings.Index(name, "(")
	if start < 0 {
		return nil
	}
	end := strings.Index(name[start:], ")")
	if end < 0 {
		return nil
	}
	tags := make(map[string]bool)
	for _, t := range strings.Split(name[start+1:start+end], ",") {
		tags[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return tags
}

// DB indexes the entries of one database.
type DB struct {
	entries []Entry
	byCRC   map[uint32]int
	byMD5   map[string]int
}

// Load reads and parses the database at path.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game database: %w", err)
	}
	return Parse(data)
}

// Parse decodes database bytes. On ErrTruncated the returned DB holds the
// entries before the damaged record.
func Parse(data []byte) (*DB, error) {
	db := &DB{byCRC: make(map[uint32]int), byMD5: make(map[string]int)}
	if len(data) <= headerSize {
		return db, nil
	}

	r := &reader{data: data, pos: headerSize}
	var err error
	for {
		var e Entry
		var ok bool
		if e, ok, err = r.record(); err != nil || !ok {
			break
		}
		if e.Name == "" && e.CRC32 == 0 {
			continue
		}
		db.entries = append(db.entries, e)
	}
	for i, e := range db.entries {
		if e.CRC32 != 0 {
			db.byCRC[e.CRC32] = i
		}
		if e.MD5 != "" {
			db.byMD5[e.MD5] = i
		}
	}
	return db, err
}

// Len returns the number of entries.
func (db *DB) Len() int {
	return len(db.entries)
}

// Lookup finds the entry for a game ID (CRC32 as hex).
func (db *DB) Lookup(gameID string) (Entry, bool) {
	crc, err := strconv.ParseUint(gameID, 16, 32)
	if err != nil || crc == 0 {
		return Entry{}, false
	}
	i, ok := db.byCRC[uint32(crc)]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

// LookupMD5 finds the entry with the given lowercase hex MD5.
func (db *DB) LookupMD5(md5 string) (Entry, bool) {
	i, ok := db.byMD5[strings.ToLower(md5)]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

// MessagePack type bytes used by RDB files.
const (
	mpFixMapMin = 0x80
	mpFixMapMax = 0x8f
	mpFixStrMin = 0xa0
	mpFixStrMax = 0xbf
	mpNil       = 0xc0
	mpBin8      = 0xc4
	mpBin16     = 0xc5
	mpBin32     = 0xc6
	mpUint8     = 0xcc
	mpUint16    = 0xcd
	mpUint32    = 0xce
	mpUint64    = 0xcf
	mpStr8      = 0xd9
	mpStr16     = 0xda
	mpStr32     = 0xdb
	mpMap16     = 0xde
	mpMap32     = 0xdf
)

type reader struct {
	data []byte
	pos  int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uintN(n int) (uint64, error) {
	b, err := r.take(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// record reads one map. It reports false at the nil terminator or the end
// of the data.
func (r *reader) record() (Entry, bool, error) {
	if r.pos >= len(r.data) {
		return Entry{}, false, nil
	}
	t := r.data[r.pos]
	r.pos++

	var n uint64
	var err error
	switch {
	case t == mpNil:
		return Entry{}, false, nil
	case t >= mpFixMapMin && t <= mpFixMapMax:
		n = uint64(t - mpFixMapMin)
	case t == mpMap16:
		n, err = r.uintN(2)
	case t == mpMap32:
		n, err = r.uintN(4)
	default:
		return Entry{}, false, fmt.Errorf("gamedb: unexpected type 0x%02x at offset %d", t, r.pos-1)
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	for i := uint64(0); i < n; i++ {
		key, _, err := r.value()
		if err != nil {
			return Entry{}, false, err
		}
		val, num, err := r.value()
		if err != nil {
			return Entry{}, false, err
		}
		e.set(string(key), val, num)
	}
	return e, true, nil
}

// value reads a string, binary or unsigned integer. Integers are returned
// as num with their big-endian bytes.
func (r *reader) value() ([]byte, uint64, error) {
	b, err := r.take(1)
	if err != nil {
		return nil, 0, err
	}
	t := b[0]

	var n uint64
	switch {
	case t < 0x80: // positive fixint
		return []byte{t}, uint64(t), nil
	case t >= mpFixStrMin && t <= mpFixStrMax:
		n = uint64(t - mpFixStrMin)
	case t == mpNil:
		return nil, 0, nil
	case t == mpStr8 || t == mpBin8:
		n, err = r.uintN(1)
	case t == mpStr16 || t == mpBin16:
		n, err = r.uintN(2)
	case t == mpStr32 || t == mpBin32:
		n, err = r.uintN(4)
	case t >= mpUint8 && t <= mpUint64:
		size := 1 << (t - mpUint8)
		raw, err := r.take(size)
		if err != nil {
			return nil, 0, err
		}
		var v uint64
		for _, c := range raw {
			v = v<<8 | uint64(c)
		}
		return raw, v, nil
	default:
		return nil, 0, fmt.Errorf("gamedb: unsupported type 0x%02x at offset %d", t, r.pos-1)
	}
	if err != nil {
		return nil, 0, err
	}
	s, err := r.take(int(n))
	return s, 0, err
}

// set stores one field. Numeric fields may be stored as integers or as
// big-endian binary.
func (e *Entry) set(key string, val []byte, num uint64) {
	if num == 0 && len(val) > 0 && len(val) <= 8 {
		num = beUint(val)
	}
	switch key {
	case "name":
		e.Name = string(val)
	case "description":
		e.Description = string(val)
	case "genre":
		e.Genre = string(val)
	case "developer":
		e.Developer = string(val)
	case "publisher":
		e.Publisher = string(val)
	case "franchise":
		e.Franchise = string(val)
	case "serial":
		e.Serial = string(val)
	case "rom_name":
		e.ROMName = string(val)
	case "releaseyear":
		e.ReleaseYear = uint(num)
	case "releasemonth":
		e.ReleaseMonth = uint(num)
	case "size":
		e.Size = num
	case "crc":
		e.CRC32 = uint32(num)
	case "md5":
		e.MD5 = hex.EncodeToString(val)
	}
}

func beUint(b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
