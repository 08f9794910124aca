package caa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbart/internal/artwork"
)

func newTestClient(url string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    url,
		userAgent:  "mbart-test/0.0",
	}
}

const listing = `{
	"images": [
		{"id": 1234, "image": "http://caa.test/release/r1/1234.jpg", "types": ["Front"], "front": true, "back": false, "comment": ""},
		{"id": "5678", "image": "http://caa.test/release/r1/5678.png", "types": ["Back", "Medium"], "front": false, "back": true, "comment": "scan"}
	],
	"release": "https://musicbrainz.org/release/r1"
}`

func TestArtwork_ParsesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release/r1", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(listing))
	}))
	defer srv.Close()

	images, err := newTestClient(srv.URL).Artwork(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, "1234", images[0].ID)
	assert.Equal(t, []string{"Front"}, images[0].Types)
	assert.True(t, images[0].Front)
	assert.Equal(t, "5678", images[1].ID)
	assert.Equal(t, "png", images[1].Extension())
	assert.Equal(t, "scan", images[1].Comment)
}

func TestArtwork_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release/r1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/mirror/index.json", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/mirror/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listing))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	images, err := newTestClient(srv.URL).Artwork(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestArtwork_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Artwork(context.Background(), "r1")
	assert.ErrorIs(t, err, artwork.ErrNotFound)
}

func TestArtwork_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: "invalid mbid"},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: "rate limited"},
		{name: "malformed json", status: http.StatusOK, body: "<html>oops</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Artwork(context.Background(), "r1")
			var svcErr *artwork.ServiceError
			require.True(t, errors.As(err, &svcErr), "got %v", err)
			assert.Equal(t, tt.status, svcErr.StatusCode)
			assert.Equal(t, srv.URL+"/release/r1", svcErr.URL)
			assert.Equal(t, tt.body, svcErr.Body)
			assert.False(t, errors.Is(err, artwork.ErrNotFound))
		})
	}
}

func TestArtwork_TransportFailureCarriesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := newTestClient(base).Artwork(context.Background(), "r1")
	var svcErr *artwork.ServiceError
	require.True(t, errors.As(err, &svcErr), "got %v", err)
	assert.Equal(t, base+"/release/r1", svcErr.URL)
	assert.Zero(t, svcErr.StatusCode)
	assert.Contains(t, err.Error(), "request to "+base+"/release/r1 failed")
}

func TestGroupArtwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release-group/rg1", r.URL.Path)
		w.Write([]byte(listing))
	}))
	defer srv.Close()

	images, err := newTestClient(srv.URL).GroupArtwork(context.Background(), "rg1")
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release/r1/1234.jpg", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		http.Redirect(w, r, "/files/1234.jpg", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/files/1234.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "204800")
		w.Header().Set("Content-Type", "image/jpeg")
	})
	mux.HandleFunc("/files/gone.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)

	size, err := c.Probe(context.Background(), srv.URL+"/release/r1/1234.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(204800), size)

	_, err = c.Probe(context.Background(), srv.URL+"/files/gone.jpg")
	assert.ErrorIs(t, err, artwork.ErrSizeUnknown)
}

func TestImageID_Unmarshal(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{body: `{"images":[{"id":12345678901}]}`, want: "12345678901"},
		{body: `{"images":[{"id":"42"}]}`, want: "42"},
		{body: `{"images":[{"id":null}]}`, want: ""},
		{body: `{"images":[{"id":1.5}]}`, wantErr: true},
		{body: `{"images":[{"id":true}]}`, wantErr: true},
	}

	for _, tt := range tests {
		images, err := DecodeListing([]byte(tt.body))
		if tt.wantErr {
			assert.Error(t, err, tt.body)
			continue
		}
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, images[0].ID)
	}
}
