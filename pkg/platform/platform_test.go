// SPDX-License-Identifier: AGPL-3.0-only

package platform

import (
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type flat struct {
	ID    uint64
	Score float64
	Tags  [4]int32
}

type withPointers struct {
	ID   uint64
	Name string
}

func TestSize(t *testing.T) {
	typ := reflect.TypeFor[flat]()

	size, err := Size(typ, 3)
	require.NoError(t, err)
	require.Equal(t, 3*uint64(typ.Size()), size)

	_, err = Size(typ, 0)
	require.ErrorIs(t, err, ErrInvalidCount)

	_, err = Size(typ, -1)
	require.ErrorIs(t, err, ErrInvalidCount)

	_, err = Size(typ, math.MaxInt)
	require.ErrorIs(t, err, ErrAllocationTooLarge)

	size, err = Size(reflect.TypeFor[struct{}](), math.MaxInt)
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestHasPointers(t *testing.T) {
	for typ, expected := range map[reflect.Type]bool{
		reflect.TypeFor[int]():                false,
		reflect.TypeFor[flat]():               false,
		reflect.TypeFor[[8]float64]():         false,
		reflect.TypeFor[struct{}]():           false,
		reflect.TypeFor[[0]*int]():            false,
		reflect.TypeFor[string]():             true,
		reflect.TypeFor[[]byte]():             true,
		reflect.TypeFor[*flat]():              true,
		reflect.TypeFor[map[int]int]():        true,
		reflect.TypeFor[any]():                true,
		reflect.TypeFor[func()]():             true,
		reflect.TypeFor[chan int]():           true,
		reflect.TypeFor[unsafe.Pointer]():     true,
		reflect.TypeFor[withPointers]():       true,
		reflect.TypeFor[[2]withPointers]():    true,
		reflect.TypeFor[struct{ f flat }]():   false,
		reflect.TypeFor[struct{ p *flat }](): true,
	} {
		assert.Equal(t, expected, HasPointers(typ), typ.String())
	}
}

func TestHeap(t *testing.T) {
	h := NewHeap()
	typ := reflect.TypeFor[withPointers]()

	p, err := h.Allocate(typ, 4)
	require.NoError(t, err)
	require.NotNil(t, p)

	block := unsafe.Slice((*withPointers)(p), 4)
	for i := range block {
		require.Equal(t, withPointers{}, block[i])
		block[i] = withPointers{ID: uint64(i), Name: "value"}
	}
	require.Equal(t, uint64(3), block[3].ID)
	require.Zero(t, uintptr(p)%uintptr(typ.Align()))

	h.Free(p)
	h.Free(nil)
	require.NoError(t, h.Close())

	_, err = h.Allocate(typ, 0)
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestMmap(t *testing.T) {
	t.Run("allocate and free", func(t *testing.T) {
		m := NewMmap(testLogger(t))
		typ := reflect.TypeFor[flat]()

		p, err := m.Allocate(typ, 1000)
		require.NoError(t, err)
		require.Equal(t, 1, m.Mapped())

		block := unsafe.Slice((*flat)(p), 1000)
		block[999] = flat{ID: 999, Score: 1.5}
		require.Equal(t, uint64(999), block[999].ID)
		require.Zero(t, uintptr(p)%uintptr(typ.Align()))

		m.Free(p)
		require.Equal(t, 0, m.Mapped())
		require.NoError(t, m.Close())
	})

	t.Run("refuses types with pointers", func(t *testing.T) {
		m := NewMmap(testLogger(t))
		_, err := m.Allocate(reflect.TypeFor[withPointers](), 1)
		require.ErrorIs(t, err, ErrPointerfulType)
		require.Equal(t, 0, m.Mapped())
	})

	t.Run("zero sized values are not mapped", func(t *testing.T) {
		m := NewMmap(testLogger(t))
		p, err := m.Allocate(reflect.TypeFor[struct{}](), 10)
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, 0, m.Mapped())
		m.Free(p)
	})

	t.Run("close unmaps leaked blocks", func(t *testing.T) {
		m := NewMmap(testLogger(t))
		_, err := m.Allocate(reflect.TypeFor[int64](), 16)
		require.NoError(t, err)
		_, err = m.Allocate(reflect.TypeFor[int64](), 16)
		require.NoError(t, err)
		require.Equal(t, 2, m.Mapped())

		require.NoError(t, m.Close())
		require.Equal(t, 0, m.Mapped())
	})

	t.Run("free of unknown or nil address is ignored", func(t *testing.T) {
		m := NewMmap(testLogger(t))
		var local int64
		require.NotPanics(t, func() {
			m.Free(nil)
			m.Free(unsafe.Pointer(&local))
		})
	})
}
