package orderedmap_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/binstruct/structurer/util/orderedmap"
)

func TestLoadStore(t *testing.T) {
	t.Parallel()

	pairs := [][2]int{{1, 2}, {2, 3}, {3, 4}}
	m := orderedmap.New[int, int]()
	for _, p := range pairs {
		k, v := p[0], p[1]
		m.Store(k, v)
		loadedV, ok := m.Load(k)
		require.True(t, ok)
		require.Equal(t, v, loadedV)
		require.Equal(t, v, m.Value(k))
	}

	v, ok := m.Load(-1)
	require.False(t, ok)
	require.Empty(t, v)
	require.Empty(t, m.Value(-1))

	require.Equal(t, len(pairs), m.Len())
}

func TestStoreOverwrite(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)
	m.Store("a", 3)

	require.Equal(t, 2, m.Len(), "overwriting an existing key must not grow Pairs")
	require.Equal(t, []string{"a", "b"}, m.Keys(), "overwrite must not move the key's position")
	require.Equal(t, 3, m.Value("a"))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[int, string]()
	m.Store(1, "one")
	m.Store(2, "two")
	m.Store(3, "three")

	m.Delete(2)
	require.Equal(t, []int{1, 3}, m.Keys())
	_, ok := m.Load(2)
	require.False(t, ok)

	// deleting an absent key is a no-op
	m.Delete(2)
	require.Equal(t, []int{1, 3}, m.Keys())
}

func TestRange(t *testing.T) {
	t.Parallel()

	pairs := make([][2]int, 0, 100)
	for i := 0; i < 100; i++ {
		pairs = append(pairs, [2]int{i, i + 1})
	}

	m := orderedmap.New[int, int]()
	for _, p := range pairs {
		m.Store(p[0], p[1])
	}

	expectedKeys := make([]int, 0, len(pairs))
	for _, p := range pairs {
		expectedKeys = append(expectedKeys, p[0])
	}

	for i := 0; i < 5; i++ {
		t.Run(fmt.Sprintf("Run%d", i), func(t *testing.T) {
			t.Parallel()

			var keys []int
			m.Range(func(k, _ int) bool {
				keys = append(keys, k)
				return true
			})
			require.Equal(t, expectedKeys, keys)
		})
	}
}

func TestRangeEarlyStop(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[int, int]()
	for i := 0; i < 10; i++ {
		m.Store(i, i)
	}

	var seen []int
	m.Range(func(k, _ int) bool {
		seen = append(seen, k)
		return k < 3
	})
	require.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestCopyIsIndependent(t *testing.T) {
	t.Parallel()

	m := orderedmap.New[int, int]()
	m.Store(1, 1)
	m.Store(2, 2)

	c := m.Copy()
	c.Store(3, 3)
	c.Delete(1)

	require.Equal(t, []int{1, 2}, m.Keys())
	require.Equal(t, []int{2, 3}, c.Keys())
}

func TestStoringPointers(t *testing.T) {
	t.Parallel()

	type I interface{ Foo() }
	type A struct{ Number int }

	m := orderedmap.New[int, *A]()
	m.Store(1, &A{Number: 1})

	v, ok := m.Load(1)
	require.True(t, ok)
	require.NotNil(t, v)
	require.Equal(t, 1, v.Number)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
