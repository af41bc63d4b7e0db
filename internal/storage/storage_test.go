package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]KV {
	t.Helper()
	bs, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "shelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return map[string]KV{
		"memory": NewMemory(),
		"bolt":   bs,
	}
}

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v, err := kv.Get(ctx, KeyAPIKey)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, kv.Set(ctx, map[string][]byte{
				KeyAPIKey: []byte(`"abc"`),
				KeyBooks:  []byte(`[]`),
			}))

			v, err = kv.Get(ctx, KeyAPIKey)
			require.NoError(t, err)
			assert.Equal(t, `"abc"`, string(v))

			require.NoError(t, kv.Clear(ctx))
			v, err = kv.Get(ctx, KeyBooks)
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	var got []string
	found, err := GetJSON(ctx, kv, KeyQuotes, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, kv, map[string]any{KeyQuotes: []string{"a", "b"}}))
	found, err = GetJSON(ctx, kv, KeyQuotes, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, kv.Set(ctx, map[string][]byte{KeyBooks: []byte("{not json")}))
	_, err = GetJSON(ctx, kv, KeyBooks, &got)
	assert.Error(t, err)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shelf.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{KeyAPIKey: []byte(`"k"`)}))
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, KeyAPIKey)
	assert.ErrorIs(t, err, ErrClosed)

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, `"k"`, string(v))
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, err := m.Get(context.Background(), KeyBooks)
	assert.ErrorIs(t, err, ErrClosed)
}
