package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewFileStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewFileStore(dir)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestKey_IsSHA256(t *testing.T) {
	payload := []byte("such wow")
	want := sha256.Sum256(payload)
	assert.Equal(t, want[:], Key(payload))
	assert.Equal(t, hex.EncodeToString(want[:]), KeyHex(payload))
}

func TestParseKey(t *testing.T) {
	payload := []byte("much inscribe")
	key, err := ParseKey(KeyHex(payload))
	require.NoError(t, err)
	assert.Equal(t, Key(payload), key)

	_, err = ParseKey("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParseKey("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyToPath(t *testing.T) {
	key := Key([]byte("x"))
	hexKey := hex.EncodeToString(key)
	assert.Equal(t, filepath.Join("/base", hexKey[:2], hexKey), KeyToPath("/base", key))
}

func TestPutGet(t *testing.T) {
	store := newTestStore(t)
	payload := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 1000)

	key, err := store.Put(payload)
	require.NoError(t, err)
	assert.Equal(t, Key(payload), key)

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	size, err := store.Size(key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)
}

func TestPut_Idempotent(t *testing.T) {
	store := newTestStore(t)
	payload := []byte("same bytes")

	k1, err := store.Put(payload)
	require.NoError(t, err)
	k2, err := store.Put(payload)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(KeyToPath(store.baseDir, k1)))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPut_Empty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Put(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	_, err = store.Put([]byte{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(Key([]byte("absent")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_Corrupt(t *testing.T) {
	store := newTestStore(t)
	key, err := store.Put([]byte("original"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(KeyToPath(store.baseDir, key), []byte("tampered"), 0600))

	_, err = store.Get(key)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestInvalidKey(t *testing.T) {
	store := newTestStore(t)
	for _, key := range [][]byte{nil, {}, make([]byte, 31), make([]byte, 33)} {
		_, err := store.Get(key)
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = store.Has(key)
		assert.ErrorIs(t, err, ErrInvalidKey)
		assert.ErrorIs(t, store.Delete(key), ErrInvalidKey)
		_, err = store.Size(key)
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func TestHasDelete(t *testing.T) {
	store := newTestStore(t)
	key, err := store.Put([]byte("doge"))
	require.NoError(t, err)

	ok, err := store.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(key))
	ok, err = store.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, store.Delete(key), ErrNotFound)
	_, err = store.Size(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_SkipsForeignEntries(t *testing.T) {
	store := newTestStore(t)
	want := map[string]bool{}
	for i := 0; i < 10; i++ {
		key, err := store.Put([]byte(fmt.Sprintf("payload-%d", i)))
		require.NoError(t, err)
		want[hex.EncodeToString(key)] = true
	}

	require.NoError(t, os.WriteFile(filepath.Join(store.baseDir, "README"), []byte("x"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(store.baseDir, "notashard"), 0700))
	require.NoError(t, os.MkdirAll(filepath.Join(store.baseDir, "ab"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(store.baseDir, "ab", "nothex"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.baseDir, "ab", "abcd"), []byte("x"), 0600))

	keys, err := store.List()
	require.NoError(t, err)
	require.Len(t, keys, len(want))
	for _, k := range keys {
		assert.True(t, want[hex.EncodeToString(k)])
	}
}

func TestConcurrentPutGet(t *testing.T) {
	store := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("concurrent-%d", i%5))
			key, err := store.Put(payload)
			assert.NoError(t, err)
			got, err := store.Get(key)
			assert.NoError(t, err)
			assert.Equal(t, payload, got)
		}(i)
	}
	wg.Wait()

	keys, err := store.List()
	require.NoError(t, err)
	assert.Len(t, keys, 5)
}
