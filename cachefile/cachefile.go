// Package cachefile implements the versioned binary format that persists
// compiled shader entry points between runs.
//
// File layout, all integers little-endian:
//
//	header:
//	  magic          uint32   "SPIV" (0x53504956)
//	  version        uint32   format version
//	  backendVersion [32]byte NUL-padded compiler build tag
//	  profile        [16]byte NUL-padded target profile
//	  contentHash    uint64   combined content hash of the inputs
//	count uint32, then per record:
//	  stage    uint32
//	  nameLen  uint32, name bytes
//	  codeLen  uint32 (bytes, multiple of 4), code words
//
// Header fields are fixed-size; record lengths are explicit, so every read
// is exact-size. All length fields are bounds-checked before allocation: a
// corrupted length can never trigger an unbounded allocation.
//
// Validity policy (which mismatches are soft misses versus hard errors)
// lives in Load; Decode and Encode are policy-free.
package cachefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/shadercache/backend"
)

// Format constants.
const (
	// Magic identifies a shader cache file ("SPIV").
	Magic uint32 = 0x53504956

	// Version is the current format version. Files written by other
	// versions are rejected as stale.
	Version uint32 = 1

	backendVersionLen = 32
	profileLen        = 16
	headerSize        = 4 + 4 + backendVersionLen + profileLen + 8
)

// Decode limits. A file exceeding any of these is malformed, not merely big.
const (
	// MaxRecords bounds the record count field.
	MaxRecords = 4096

	// MaxNameLen bounds an entry point name.
	MaxNameLen = 4096

	// MaxCodeLen bounds one record's code blob in bytes.
	MaxCodeLen = 1 << 28
)

// ErrMalformed is wrapped by every hard decode failure.
var ErrMalformed = errors.New("cachefile: malformed cache file")

// Record is one compiled entry point.
type Record struct {
	Stage backend.Stage
	Name  string
	Code  []uint32
}

// File is a decoded cache file.
type File struct {
	BackendVersion string
	Profile        string
	ContentHash    uint64
	Records        []Record
}

// Load reads and validates the cache file at path against the expected
// profile and content hash.
//
// Three-way result:
//   - (f, "", nil): the cache is valid and trusted.
//   - (nil, reason, nil): soft miss — the file is absent or stale
//     (magic, version, profile or hash mismatch). Callers log the reason
//     and recompile; this is never an error.
//   - (nil, "", err): hard failure — the file exists but could not be read
//     or decoded.
func Load(path, profile string, contentHash uint64) (*File, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "no cache file", nil
		}
		return nil, "", fmt.Errorf("cachefile: read %s: %w", path, err)
	}

	f, err := Decode(data)
	if err != nil {
		if IsStale(err) {
			return nil, err.Error(), nil
		}
		return nil, "", err
	}

	if f.Profile != profile {
		return nil, fmt.Sprintf("profile mismatch: cache %q, want %q", f.Profile, profile), nil
	}
	if f.ContentHash != contentHash {
		return nil, "content hash mismatch", nil
	}
	return f, "", nil
}

// Decode parses a cache file image. Magic and version are checked before any
// other field is trusted; a mismatch there is reported as a stale-file error
// recognizable via IsStale, which Load downgrades to a soft miss.
func Decode(data []byte) (*File, error) {
	d := decoder{buf: data}

	magic, err := d.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", errStale, magic)
	}
	version, err := d.u32()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: format version %d, want %d", errStale, version, Version)
	}

	f := &File{}
	if f.BackendVersion, err = d.fixedString(backendVersionLen); err != nil {
		return nil, err
	}
	if f.Profile, err = d.fixedString(profileLen); err != nil {
		return nil, err
	}
	if f.ContentHash, err = d.u64(); err != nil {
		return nil, err
	}

	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	if count > MaxRecords {
		return nil, fmt.Errorf("%w: record count %d exceeds limit", ErrMalformed, count)
	}

	f.Records = make([]Record, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := d.record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		f.Records = append(f.Records, rec)
	}

	if d.off != len(d.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.buf)-d.off)
	}
	return f, nil
}

// errStale marks magic/version mismatches so Load can downgrade them to soft
// misses while Decode callers (e.g. cache inspection) still see an error.
var errStale = errors.New("cachefile: stale cache file")

// IsStale reports whether err marks a file written by a different format
// generation (bad magic or version) rather than a corrupted one.
func IsStale(err error) bool {
	return errors.Is(err, errStale)
}

// Encode serializes the file.
func (f *File) Encode() ([]byte, error) {
	if len(f.Records) > MaxRecords {
		return nil, fmt.Errorf("cachefile: %d records exceed limit", len(f.Records))
	}

	var buf bytes.Buffer
	putU32(&buf, Magic)
	putU32(&buf, Version)
	putFixedString(&buf, f.BackendVersion, backendVersionLen)
	putFixedString(&buf, f.Profile, profileLen)
	putU64(&buf, f.ContentHash)

	putU32(&buf, uint32(len(f.Records)))
	for _, rec := range f.Records {
		if len(rec.Name) > MaxNameLen {
			return nil, fmt.Errorf("cachefile: entry point name of %d bytes exceeds limit", len(rec.Name))
		}
		if len(rec.Code)*4 > MaxCodeLen {
			return nil, fmt.Errorf("cachefile: code blob of %d words exceeds limit", len(rec.Code))
		}
		putU32(&buf, uint32(rec.Stage))
		putU32(&buf, uint32(len(rec.Name)))
		buf.WriteString(rec.Name)
		putU32(&buf, uint32(len(rec.Code)*4))
		for _, w := range rec.Code {
			putU32(&buf, w)
		}
	}
	return buf.Bytes(), nil
}

// WriteAtomic publishes the file at path. The content is written to a
// temporary sibling and renamed over the final path only after the write
// completes, so a reader never observes a partially written cache, even if
// the process dies mid-save.
func (f *File) WriteAtomic(path string) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cachefile: create cache directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cachefile: publish %s: %w", path, err)
	}
	return nil
}

func writeAndSync(path string, data []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cachefile: open %s: %w", path, err)
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		return fmt.Errorf("cachefile: write %s: %w", path, err)
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		return fmt.Errorf("cachefile: sync %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("cachefile: close %s: %w", path, err)
	}
	return nil
}

// decoder reads fixed-width fields from an in-memory image with explicit
// bounds checks on every access.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) need(n int) error {
	if len(d.buf)-d.off < n {
		return fmt.Errorf("%w: truncated at offset %d (need %d bytes)", ErrMalformed, d.off, n)
	}
	return nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

// fixedString reads an n-byte NUL-padded field and trims the padding.
func (d *decoder) fixedString(n int) (string, error) {
	if err := d.need(n); err != nil {
		return "", err
	}
	raw := d.buf[d.off : d.off+n]
	d.off += n
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

func (d *decoder) record() (Record, error) {
	var rec Record

	stage, err := d.u32()
	if err != nil {
		return rec, err
	}
	rec.Stage = backend.Stage(stage)

	nameLen, err := d.u32()
	if err != nil {
		return rec, err
	}
	if nameLen > MaxNameLen {
		return rec, fmt.Errorf("%w: name length %d exceeds limit", ErrMalformed, nameLen)
	}
	if err := d.need(int(nameLen)); err != nil {
		return rec, err
	}
	rec.Name = string(d.buf[d.off : d.off+int(nameLen)])
	d.off += int(nameLen)

	codeLen, err := d.u32()
	if err != nil {
		return rec, err
	}
	if codeLen > MaxCodeLen {
		return rec, fmt.Errorf("%w: code length %d exceeds limit", ErrMalformed, codeLen)
	}
	if codeLen%4 != 0 {
		return rec, fmt.Errorf("%w: code length %d not word-aligned", ErrMalformed, codeLen)
	}
	if err := d.need(int(codeLen)); err != nil {
		return rec, err
	}
	rec.Code = make([]uint32, codeLen/4)
	for i := range rec.Code {
		rec.Code[i] = binary.LittleEndian.Uint32(d.buf[d.off:])
		d.off += 4
	}
	return rec, nil
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// putFixedString writes s into an n-byte NUL-padded field. Overlong values
// are truncated to n-1 bytes so the field always ends with a NUL.
func putFixedString(buf *bytes.Buffer, s string, n int) {
	b := make([]byte, n)
	copy(b[:n-1], s)
	buf.Write(b)
}
