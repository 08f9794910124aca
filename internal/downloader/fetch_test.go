package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbart/internal/artwork"
)

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release/r1/1.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/1.jpg", http.StatusFound)
	})
	mux.HandleFunc("/files/1.jpg", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mbart-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(strings.Repeat("x", 2048)))
	})
	mux.HandleFunc("/files/chunked.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		for i := 0; i < 4; i++ {
			w.Write([]byte(strings.Repeat("y", 1024)))
			w.(http.Flusher).Flush()
		}
	})
	mux.HandleFunc("/files/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client(), UserAgent: "mbart-test"}

	t.Run("follows redirects", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/release/r1/1.jpg", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2048), p.Size)
		assert.Equal(t, "image/jpeg", p.ContentType)
	})

	t.Run("announced length above limit", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/files/1.jpg", 1000)
		assert.ErrorIs(t, err, ErrTooLarge)
		assert.Equal(t, int64(2048), p.Size)
		assert.Nil(t, p.Data)
	})

	t.Run("streamed body above limit", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/files/chunked.jpg", 3000)
		assert.ErrorIs(t, err, ErrTooLarge)
		assert.Equal(t, int64(3001), p.Size)
	})

	t.Run("limit equal to size", func(t *testing.T) {
		p, err := f.Fetch(context.Background(), srv.URL+"/files/1.jpg", 2048)
		require.NoError(t, err)
		assert.Len(t, p.Data, 2048)
	})

	t.Run("non-2xx", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/files/missing.jpg", 0)
		var svcErr *artwork.ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})
}
