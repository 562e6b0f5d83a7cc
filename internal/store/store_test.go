package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string            `json:"name" plist:"name"`
	Count  int64             `json:"count" plist:"count"`
	Params map[string]string `json:"params" plist:"params"`
	Items  []string          `json:"items" plist:"items"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fileJSON, err := NewFileStore(filepath.Join(t.TempDir(), "json"), JSONCodec{})
	require.NoError(t, err)
	filePlist, err := NewFileStore(filepath.Join(t.TempDir(), "plist"), PlistCodec{})
	require.NoError(t, err)
	db, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"file-json":  fileJSON,
		"file-plist": filePlist,
		"sqlite":     db,
		"memory":     NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := &sample{
				Name:   "queue",
				Count:  3,
				Params: map[string]string{"app_token": "abc123def456"},
				Items:  []string{"a", "b"},
			}
			require.NoError(t, s.Save(ctx, "Sample", in))

			var out sample
			require.NoError(t, s.Load(ctx, "Sample", &out))
			assert.Equal(t, *in, out)

			// overwrite replaces the whole value
			in.Items = []string{"c"}
			require.NoError(t, s.Save(ctx, "Sample", in))
			got, err := Read[sample](ctx, s, "Sample")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, []string{"c"}, got.Items)

			require.NoError(t, s.Delete(ctx, "Sample"))
			err = s.Load(ctx, "Sample", &out)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReadMissingSlot(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := Read[sample](ctx, s, "Missing")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestFileStoreDecodeErrorIsNotNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, JSONCodec{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path("Broken"), []byte("{not json"), 0o644))

	_, err = Read[sample](context.Background(), s, "Broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(context.Background(), SlotPackageQueue, &sample{Count: int64(i)}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PackageQueue.json", entries[0].Name())
}

func TestInvalidSlotNames(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	for _, slot := range []string{"", "../escape", "a/b", "with space"} {
		err := s.Save(context.Background(), slot, &sample{})
		assert.Error(t, err, slot)
	}
}

func TestWriteNil(t *testing.T) {
	err := Write[sample](context.Background(), NewMemoryStore(), "Sample", nil)
	assert.Error(t, err)
}

func TestMemoryStoreFailSave(t *testing.T) {
	s := NewMemoryStore()
	s.SetFailSave(errors.New("disk full"))

	err := s.Save(context.Background(), "Sample", &sample{})
	require.EqualError(t, err, "disk full")
	assert.False(t, s.Has("Sample"))
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = CodecByName("PLIST")
	require.NoError(t, err)
	assert.Equal(t, "plist", c.Name())

	_, err = CodecByName("xml")
	assert.Error(t, err)
}
