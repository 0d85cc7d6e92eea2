package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client, "test:"), mr
}

func backends(t *testing.T) map[string]KV {
	t.Helper()
	file, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	rkv, _ := newRedisKV(t)
	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   file,
		"redis":  rkv,
	}
}

func TestKVContract(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "a-1", []byte("one")))
			require.NoError(t, kv.Set(ctx, "a-2", []byte("two")))
			require.NoError(t, kv.Set(ctx, "b-1", []byte("three")))
			require.NoError(t, kv.Set(ctx, "a-1", []byte("uno")))

			v, ok, err := kv.Get(ctx, "a-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "uno", string(v))

			keys, err := kv.Keys(ctx, "a-")
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"a-1", "a-2"}, keys)

			require.NoError(t, kv.Delete(ctx, "a-1"))
			require.NoError(t, kv.Delete(ctx, "a-1"), "deleting a missing key is not an error")
			_, ok, err = kv.Get(ctx, "a-1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	in := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestFileKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewFileKV(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "skydiorama-storage", []byte(`{"cities":[]}`)))

	reopened, err := NewFileKV(dir)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "skydiorama-storage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"cities":[]}`, string(v))
}

func TestRedisKVNamespace(t *testing.T) {
	ctx := context.Background()
	kv, mr := newRedisKV(t)

	require.NoError(t, kv.Set(ctx, "diorama-x", []byte("data")))
	assert.True(t, mr.Exists("test:diorama-x"))

	require.NoError(t, mr.Set("other:diorama-y", "foreign"))
	keys, err := kv.Keys(ctx, "diorama-")
	require.NoError(t, err)
	assert.Equal(t, []string{"diorama-x"}, keys)
}

func TestArtifacts(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "skydiorama-storage", []byte("metadata")))

	a := NewArtifacts(kv, nil)
	assert.Equal(t, int64(0), a.Size(ctx))
	assert.Equal(t, 0, a.Count(ctx))

	require.NoError(t, a.Put(ctx, "41.15--8.61", "data:image/png;base64,AAAA"))
	require.NoError(t, a.Put(ctx, "48.85-2.35", "data:image/png;base64,BBBBBBBB"))

	got, ok, err := a.Get(ctx, "41.15--8.61")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAAA", got)

	assert.Equal(t, 2, a.Count(ctx))
	assert.Equal(t, int64(len("data:image/png;base64,AAAA")+len("data:image/png;base64,BBBBBBBB")), a.Size(ctx))

	require.NoError(t, a.Delete(ctx, "41.15--8.61"))
	_, ok, err = a.Get(ctx, "41.15--8.61")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.ClearAll(ctx))
	assert.Equal(t, 0, a.Count(ctx))

	// ClearAll leaves other keys alone.
	v, ok, err := kv.Get(ctx, "skydiorama-storage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "metadata", string(v))
}

type brokenKV struct{ KV }

var errBroken = errors.New("disk on fire")

func (brokenKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errBroken }
func (brokenKV) Keys(context.Context, string) ([]string, error)    { return nil, errBroken }

func TestArtifactsUnreadableStore(t *testing.T) {
	ctx := context.Background()
	a := NewArtifacts(brokenKV{NewMemoryKV()}, nil)

	assert.Equal(t, SizeUnknown, a.Size(ctx))
	assert.Equal(t, 0, a.Count(ctx))
	assert.Equal(t, "Unknown", FormatSize(a.Size(ctx)))

	_, _, err := a.Get(ctx, "x")
	assert.ErrorIs(t, err, errBroken)
	assert.ErrorIs(t, a.ClearAll(ctx), errBroken)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0.00 KB (0.00 MB)", FormatSize(0))
	assert.Equal(t, "1.00 KB (0.00 MB)", FormatSize(1024))
	assert.Equal(t, "1536.00 KB (1.50 MB)", FormatSize(1536*1024))
	assert.True(t, strings.HasPrefix(FormatSize(512), "0.50 KB"))
}
