package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	closed bool
}

func (f *fakeBrowser) Close() { f.closed = true }

type fakeStore struct {
	closed bool
}

func (f *fakeStore) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestClosePartialDisconnectsStore(t *testing.T) {
	t.Parallel()

	b := &fakeBrowser{}
	s := &fakeStore{}
	closePartial(context.Background(), b, s)

	require.True(t, b.closed)
	require.True(t, s.closed, "a failed init after Mongo connects must disconnect the store")
}

func TestClosePartialToleratesNilStore(t *testing.T) {
	t.Parallel()

	b := &fakeBrowser{}
	closePartial(context.Background(), b, nil)
	require.True(t, b.closed)
}
