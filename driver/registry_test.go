package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsNilAndEmptyPrefix(t *testing.T) {
	r := NewRegistry()
	err := r.Register(nil)
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, BadURLPrefix, derr.Kind)

	err = r.Register(&Driver{})
	require.Error(t, err)
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, BadURLPrefix, derr.Kind)
}

func TestRegisterRunsInitHook(t *testing.T) {
	r := NewRegistry()
	called := false
	err := r.Register(&Driver{
		Prefix: "test://",
		Ops:    Ops{Init: func() error { called = true; return nil }},
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRegisterPropagatesInitFailure(t *testing.T) {
	r := NewRegistry()
	sentinel := errors.New("boom")
	err := r.Register(&Driver{
		Prefix: "test://",
		Ops:    Ops{Init: func() error { return sentinel }},
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, r.Len())
}

func TestRegisterRejectsFullTable(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxDrivers; i++ {
		require.NoError(t, r.Register(&Driver{Prefix: "p" + string(rune('a'+i)) + "://"}))
	}
	err := r.Register(&Driver{Prefix: "overflow://"})
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, TooManyDrivers, derr.Kind)
}

func TestLookupPrefersMostRecentRegistration(t *testing.T) {
	r := NewRegistry()
	first := &Driver{Prefix: "file://"}
	second := &Driver{Prefix: "file://"}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second))

	got, err := r.Lookup("file://")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestLookupNoMatch(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope://")
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, NoMatchingDriver, derr.Kind)
}

func TestShutdownCollectsAllErrors(t *testing.T) {
	r := NewRegistry()
	e1, e2 := errors.New("one"), errors.New("two")
	require.NoError(t, r.Register(&Driver{Prefix: "a://", Ops: Ops{Shutdown: func() error { return e1 }}}))
	require.NoError(t, r.Register(&Driver{Prefix: "b://", Ops: Ops{Shutdown: func() error { return nil }}}))
	require.NoError(t, r.Register(&Driver{Prefix: "c://", Ops: Ops{Shutdown: func() error { return e2 }}}))

	err := r.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
}

func TestDispatchAbsentOpReportsTypedError(t *testing.T) {
	d := NewDispatch(&Driver{Prefix: "bare://"})
	_, err := d.Open(context.Background(), "x", ReadOnly)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, FileNotOpened, derr.Kind)
}

func TestDispatchOptionalOpsSilentlyNoop(t *testing.T) {
	d := NewDispatch(&Driver{Prefix: "bare://"})
	assert.NoError(t, d.Flush(context.Background(), 0))
	assert.NoError(t, d.Truncate(context.Background(), 0, 10))
	assert.NoError(t, d.Remove(context.Background(), "x"))
	assert.NoError(t, d.CheckFile(context.Background(), new(string), new(string), new(string)))
}
