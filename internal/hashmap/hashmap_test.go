package hashmap

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNormalMap(t *testing.T) {
	m := NewNormal[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	require.Equal(t, 2, m.Size())
	require.True(t, m.Has("a"))
	require.Equal(t, 2, m.Get("b"))

	m.Unset("a")
	_, ok := m.Lookup("a")
	require.False(t, ok)

	m.BootstrappedManipulation(func(raw map[string]int) {
		raw["c"] = 3
	})
	require.Equal(t, 3, m.Get("c"))

	m.Clear()
	require.Zero(t, m.Size())
}

func TestExpiringMapLookupHonorsLifetime(t *testing.T) {
	m := NewExpiring[string, string](20 * time.Millisecond)
	m.Set("token", "value")

	val, ok := m.Lookup("token")
	require.True(t, ok)
	require.Equal(t, "value", val)

	require.Eventually(t, func() bool {
		return !m.Has("token")
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, m.Get("token"))
}

func TestExpiringMapCleanupTask(t *testing.T) {
	m := NewExpiring[string, int](10 * time.Millisecond)
	m.ScheduleCleanupTask(5 * time.Millisecond)
	defer m.StopCleanupTask()
	m.Set("a", 1)

	require.Eventually(t, func() bool {
		return m.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestExpiringMapBootstrappedManipulation(t *testing.T) {
	m := NewExpiring[string, int](time.Minute)
	m.Set("a", 1)
	m.Set("b", 2)

	m.BootstrappedManipulation(func(raw map[string]int) {
		delete(raw, "a")
		raw["b"] = 20
		raw["c"] = 3
	})

	require.False(t, m.Has("a"))
	require.Equal(t, 20, m.Get("b"))
	require.Equal(t, 3, m.Get("c"))
	require.Equal(t, 2, m.Size())
}
