package sgl

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/bluenviron/cdixfer/pkg/pool"
)

func newFragPool(t *testing.T, n int) *pool.Pool {
	p, err := pool.New(pool.Config{
		Name:      "frag",
		ItemCount: n,
		NewItem: func() interface{} {
			return &Fragment{}
		},
	})
	require.NoError(t, err)
	return p
}

func TestAppendInvariants(t *testing.T) {
	l := &List{}
	require.True(t, l.Empty())
	require.Nil(t, l.Head)
	require.Nil(t, l.Tail)

	l.Append(&Fragment{Bytes: []byte{1, 2, 3}})
	require.Equal(t, 3, l.Total)
	require.NotNil(t, l.Head)
	require.Same(t, l.Head, l.Tail)
	require.Nil(t, l.Tail.next)

	l.Append(&Fragment{Bytes: []byte{4, 5}})
	require.Equal(t, 5, l.Total)
	require.Nil(t, l.Tail.next)
	require.NotSame(t, l.Head, l.Tail)
}

func TestPrepend(t *testing.T) {
	l := &List{}
	l.Append(&Fragment{Bytes: []byte{2}})
	l.Prepend(&Fragment{Bytes: []byte{1}})

	var out []byte
	l.ForEachFragment(func(b []byte) { out = append(out, b...) })
	require.Equal(t, []byte{1, 2}, out)
}

func TestSpliceAfter(t *testing.T) {
	a := &List{}
	a.Append(&Fragment{Bytes: []byte{1, 2}})

	b := &List{}
	b.Append(&Fragment{Bytes: []byte{3, 4}})

	a.SpliceAfter(b)

	require.True(t, b.Empty())
	require.Equal(t, 4, a.Total)
	require.Nil(t, a.Tail.next)

	var out []byte
	a.ForEachFragment(func(fb []byte) { out = append(out, fb...) })
	require.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestGather(t *testing.T) {
	l := &List{}
	l.Append(&Fragment{Bytes: []byte{0, 1, 2}})
	l.Append(&Fragment{Bytes: []byte{3, 4}})
	l.Append(&Fragment{Bytes: []byte{5, 6, 7, 8}})

	dest := make([]byte, 4)
	n, err := l.Gather(2, dest, 4)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{2, 3, 4, 5}, dest)
}

func TestSliceRangeSpanningFragments(t *testing.T) {
	l := &List{}
	l.Append(&Fragment{Bytes: []byte{0, 1, 2}})
	l.Append(&Fragment{Bytes: []byte{3, 4}})
	l.Append(&Fragment{Bytes: []byte{5, 6, 7, 8}})

	slices, err := l.SliceRange(2, 4)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{2}, {3, 4}, {5}}, slices)

	slices, err = l.SliceRange(0, 3)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0, 1, 2}}, slices)
}

func TestSliceRangeOutOfBounds(t *testing.T) {
	l := &List{}
	l.Append(&Fragment{Bytes: []byte{0, 1, 2}})

	_, err := l.SliceRange(1, 4)
	require.Error(t, err)
}

func TestGatherOutOfBounds(t *testing.T) {
	l := &List{}
	l.Append(&Fragment{Bytes: []byte{0, 1, 2}})

	dest := make([]byte, 4)
	_, err := l.Gather(1, dest, 4)
	require.Error(t, err)
}

func TestFreeFragments(t *testing.T) {
	p := newFragPool(t, 3)

	f1, _ := p.Get()
	f2, _ := p.Get()

	l := &List{}
	l.Append(f1.(*Fragment))
	l.Append(f2.(*Fragment))

	require.Equal(t, 1, p.FreeCount())

	FreeFragments(p, l)

	require.Equal(t, 3, p.FreeCount())
	require.True(t, l.Empty())
}
