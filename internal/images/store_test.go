package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "missing.jpg"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "a.jpg"):
			_, _ = w.Write([]byte("jpeg-bytes-a"))
		default:
			_, _ = w.Write([]byte("jpeg-bytes"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsMissingDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestNewCreatesDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "images")
	_, err := New(Config{Dir: dir}, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestFetchDownloadsToLocalPaths(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	dir := t.TempDir()
	store, err := New(Config{Dir: dir}, zap.NewNop())
	require.NoError(t, err)

	paths := store.Fetch(context.Background(), []string{srv.URL + "/large/a.jpg"})
	require.Len(t, paths, 1)
	require.Equal(t, ".jpg", filepath.Ext(paths[0]))

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes-a", string(data))
}

func TestFetchSkipsFailedDownloads(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	store, err := New(Config{Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)

	paths := store.Fetch(context.Background(), []string{
		srv.URL + "/large/missing.jpg",
		srv.URL + "/large/b.png",
	})
	require.Len(t, paths, 1, "a failed download must not discard the rest")
	require.Equal(t, ".png", filepath.Ext(paths[0]))
}

func TestLocalNameIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		localName("http://wx1.sinaimg.cn/large/a.jpg"),
		localName("http://wx1.sinaimg.cn/large/a.jpg"),
	)
	require.NotEqual(t,
		localName("http://wx1.sinaimg.cn/large/a.jpg"),
		localName("http://wx1.sinaimg.cn/large/b.jpg"),
	)
	require.Equal(t, ".gif", filepath.Ext(localName("http://h/x.gif")))
	require.Equal(t, ".jpg", filepath.Ext(localName("http://h/noext")))
}
