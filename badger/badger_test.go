package badger_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/alu"
	"github.com/benbjohnson/alu/badger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCache_Get(t *testing.T) {
	c := MustOpenCache(t, badger.InMemoryConfig())

	key := badger.Key{Program: []byte("inp w\n"), Registers: alu.DefaultRegisters, Output: "w", Policy: "max", Target: 9}
	answer := &alu.Answer{Digits: []int{9}, Value: 9, Policy: "max"}
	require.NoError(t, c.Put(key, answer))

	other, err := c.Get(key)
	require.NoError(t, err)
	require.Equal(t, answer, other)

	n, err := c.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCache_Get_ErrNotFound(t *testing.T) {
	c := MustOpenCache(t, badger.InMemoryConfig())

	key := badger.Key{Program: []byte("inp w\n"), Output: "w", Policy: "max", Target: 9}
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{9}, Value: 9, Policy: "max"}))

	// Any change to the query is a different key.
	for _, other := range []badger.Key{
		{Program: []byte("inp x\n"), Output: "w", Policy: "max", Target: 9},
		{Program: []byte("inp w\n"), Output: "x", Policy: "max", Target: 9},
		{Program: []byte("inp w\n"), Output: "w", Policy: "min", Target: 9},
		{Program: []byte("inp w\n"), Output: "w", Policy: "max", Target: 8},
		{Program: []byte("inp w\n"), Registers: []string{"w"}, Output: "w", Policy: "max", Target: 9},
	} {
		_, err := c.Get(other)
		require.ErrorIs(t, err, badger.ErrNotFound)
	}
}

func TestCache_Put_Replace(t *testing.T) {
	c := MustOpenCache(t, badger.InMemoryConfig())

	key := badger.Key{Program: []byte("inp w\ninp x\n"), Output: "x", Policy: "min", Target: 1}
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{2, 1}, Value: 1, Policy: "min"}))
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{1, 1}, Value: 1, Policy: "min"}))

	answer, err := c.Get(key)
	require.NoError(t, err)
	require.Equal(t, "11", answer.String())
}

func TestCache_Delete(t *testing.T) {
	c := MustOpenCache(t, badger.InMemoryConfig())

	key := badger.Key{Program: []byte("inp w\n"), Output: "w", Policy: "max"}
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{9}, Value: 9, Policy: "max"}))
	require.NoError(t, c.Delete(key))

	_, err := c.Get(key)
	require.ErrorIs(t, err, badger.ErrNotFound)
}

func TestCache_Reopen(t *testing.T) {
	cfg := badger.DefaultConfig(t.TempDir())
	cfg.Logger = zaptest.NewLogger(t)
	key := badger.Key{Program: []byte("inp w\n"), Output: "w", Policy: "max", Target: 3}

	c, err := badger.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{3}, Value: 3, Policy: "max"}))
	require.NoError(t, c.Close())

	c, err = badger.Open(cfg)
	require.NoError(t, err)
	defer c.Close()

	answer, err := c.Get(key)
	require.NoError(t, err)
	require.Equal(t, []int{3}, answer.Digits)
}

func TestCache_TTL(t *testing.T) {
	cfg := badger.InMemoryConfig()
	cfg.TTL = time.Hour
	c := MustOpenCache(t, cfg)

	key := badger.Key{Program: []byte("inp w\n"), Output: "w", Policy: "max", Target: 3}
	require.NoError(t, c.Put(key, &alu.Answer{Digits: []int{3}, Value: 3, Policy: "max"}))

	_, err := c.Get(key)
	require.NoError(t, err)
}

func TestOpen_ErrPathRequired(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	require.Error(t, err)
}

// MustOpenCache opens a cache that is closed when the test ends.
func MustOpenCache(tb testing.TB, cfg badger.Config) *badger.Cache {
	tb.Helper()
	c, err := badger.Open(cfg)
	require.NoError(tb, err)
	tb.Cleanup(func() { require.NoError(tb, c.Close()) })
	return c
}
