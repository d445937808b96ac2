package cachefile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadercache/backend"
)

func sampleFile() *File {
	return &File{
		BackendVersion: "test-backend-1.0",
		Profile:        "spirv_1_5",
		ContentHash:    0xdeadbeefcafe0042,
		Records: []Record{
			{Stage: backend.StageVertex, Name: "vs_main", Code: []uint32{0x07230203, 1, 2, 3}},
			{Stage: backend.StageFragment, Name: "fs_main", Code: []uint32{0x07230203, 9}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := sampleFile()
	data, err := f.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f.BackendVersion, got.BackendVersion)
	assert.Equal(t, f.Profile, got.Profile)
	assert.Equal(t, f.ContentHash, got.ContentHash)
	assert.Equal(t, f.Records, got.Records)
}

func TestEncodeEmptyRecords(t *testing.T) {
	f := &File{BackendVersion: "b", Profile: "p", ContentHash: 1}
	data, err := f.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got.Records)
}

func TestDecodeBadMagic(t *testing.T) {
	data, err := sampleFile().Encode()
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[0:], 0x12345678)

	_, err = Decode(data)
	require.Error(t, err)
	assert.True(t, IsStale(err), "a magic mismatch is a stale file, not corruption")
}

func TestDecodeBadVersion(t *testing.T) {
	data, err := sampleFile().Encode()
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[4:], Version+1)

	_, err = Decode(data)
	require.Error(t, err)
	assert.True(t, IsStale(err))
}

func TestDecodeTruncated(t *testing.T) {
	data, err := sampleFile().Encode()
	require.NoError(t, err)

	for _, cut := range []int{1, headerSize - 1, headerSize + 2, len(data) - 3} {
		_, err := Decode(data[:cut])
		require.Error(t, err, "cut at %d", cut)
		require.ErrorIs(t, err, ErrMalformed)
		assert.False(t, IsStale(err), "truncation is corruption, not staleness")
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	data, err := sampleFile().Encode()
	require.NoError(t, err)

	_, err = Decode(append(data, 0xFF))
	require.ErrorIs(t, err, ErrMalformed)
}

// A corrupted length field must be rejected before any allocation sized by
// it, so a tiny hostile file can never trigger a huge allocation.
func TestDecodeCorruptLengths(t *testing.T) {
	base := sampleFile()

	t.Run("record count", func(t *testing.T) {
		data, err := base.Encode()
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(data[headerSize:], 0xFFFFFFFF)
		_, err = Decode(data)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("name length", func(t *testing.T) {
		data, err := base.Encode()
		require.NoError(t, err)
		// First record starts right after the count: stage u32, then nameLen.
		binary.LittleEndian.PutUint32(data[headerSize+4+4:], 0xFFFFFFFF)
		_, err = Decode(data)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("code length", func(t *testing.T) {
		data, err := base.Encode()
		require.NoError(t, err)
		nameLen := len(base.Records[0].Name)
		off := headerSize + 4 + 4 + 4 + nameLen
		binary.LittleEndian.PutUint32(data[off:], 0xFFFFFFFF)
		_, err = Decode(data)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unaligned code length", func(t *testing.T) {
		data, err := base.Encode()
		require.NoError(t, err)
		nameLen := len(base.Records[0].Name)
		off := headerSize + 4 + 4 + 4 + nameLen
		binary.LittleEndian.PutUint32(data[off:], 6)
		_, err = Decode(data)
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestLoadSoftMisses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.spvcache")
	f := sampleFile()
	require.NoError(t, f.WriteAtomic(path))

	tests := []struct {
		name    string
		profile string
		hash    uint64
	}{
		{"profile mismatch", "spirv_1_0", f.ContentHash},
		{"hash mismatch", f.Profile, f.ContentHash + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason, err := Load(path, tt.profile, tt.hash)
			require.NoError(t, err, "mismatches are soft misses, never errors")
			assert.Nil(t, got)
			assert.NotEmpty(t, reason)
		})
	}

	t.Run("absent file", func(t *testing.T) {
		got, reason, err := Load(filepath.Join(dir, "absent"), f.Profile, f.ContentHash)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, "no cache file", reason)
	})

	t.Run("stale magic", func(t *testing.T) {
		data, err := f.Encode()
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(data[0:], 0)
		stale := filepath.Join(dir, "stale.spvcache")
		require.NoError(t, os.WriteFile(stale, data, 0o644))

		got, reason, err := Load(stale, f.Profile, f.ContentHash)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NotEmpty(t, reason)
	})

	t.Run("valid", func(t *testing.T) {
		got, reason, err := Load(path, f.Profile, f.ContentHash)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, reason)
		assert.Equal(t, f.Records, got.Records)
	})
}

func TestLoadCorruptIsHardError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.spvcache")
	data, err := sampleFile().Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-2], 0o644))

	_, _, err = Load(path, "spirv_1_5", 0xdeadbeefcafe0042)
	require.Error(t, err)
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cache.spvcache")

	first := sampleFile()
	require.NoError(t, first.WriteAtomic(path))

	second := sampleFile()
	second.ContentHash = 7
	require.NoError(t, second.WriteAtomic(path))

	got, _, err := Load(path, second.Profile, 7)
	require.NoError(t, err)
	require.NotNil(t, got, "rewrite must fully replace the previous file")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "no temporary sibling may remain after publish")
}

func TestFixedStringTruncation(t *testing.T) {
	f := sampleFile()
	f.BackendVersion = "this-backend-version-string-is-longer-than-the-field"
	data, err := f.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, got.BackendVersion, backendVersionLen-1, "overlong identifiers truncate to keep the trailing NUL")
	assert.Equal(t, f.BackendVersion[:backendVersionLen-1], got.BackendVersion)
}
