package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func key(b byte) Key {
	var k Key
	k[0] = b
	return k
}

func TestBounded_EvictsOldestOnCapacity(t *testing.T) {
	c := New[int](3, time.Hour, nil, "test")
	c.Insert(key(1), 1)
	c.Insert(key(2), 2)
	c.Insert(key(3), 3)
	c.Insert(key(4), 4) // evicts key(1)

	require.Equal(t, 3, c.Len())
	require.False(t, c.Contains(key(1)))
	require.True(t, c.Contains(key(2)))
	require.True(t, c.Contains(key(3)))
	require.True(t, c.Contains(key(4)))
}

func TestBounded_TTLExpiry(t *testing.T) {
	c := New[int](10, 10*time.Millisecond, nil, "test")
	c.Insert(key(1), 42)
	require.True(t, c.Contains(key(1)))

	time.Sleep(25 * time.Millisecond)
	_, ok := c.Get(key(1))
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestBounded_WarnsAt80Percent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	c := New[int](10, time.Hour, logger, "dedupe")
	for i := byte(0); i < 8; i++ {
		c.Insert(key(i), int(i))
	}

	require.Equal(t, 1, logs.Len())
	require.Contains(t, logs.All()[0].Message, "approaching capacity")
}

func TestBounded_ClearResetsWarningAndEntries(t *testing.T) {
	c := New[int](2, time.Hour, nil, "test")
	c.Insert(key(1), 1)
	c.Insert(key(2), 2)
	require.True(t, c.warned)
	c.Clear()
	require.False(t, c.warned)
	require.Equal(t, 0, c.Len())
	require.False(t, c.Contains(key(1)))
}

func TestHashSet_BasicMembership(t *testing.T) {
	s := NewHashSet(5, time.Hour, nil, "verified_hashes")
	s.Insert(key(9))
	require.True(t, s.Contains(key(9)))
	s.Remove(key(9))
	require.False(t, s.Contains(key(9)))
}

func TestPendingMap_CarriesValue(t *testing.T) {
	m := NewPendingMap[time.Time](5, time.Hour, nil, "pending_execution")
	when := time.Now().Add(15 * time.Second)
	m.Insert(key(1), when)

	got, ok := m.Get(key(1))
	require.True(t, ok)
	require.True(t, got.Equal(when))
}
