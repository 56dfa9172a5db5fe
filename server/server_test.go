package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rekam/entries"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, opts)
}

func TestRoundTripWithClient(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, Options{}).Handler())
	defer srv.Close()

	client, err := entries.NewClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	list, err := client.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, client.CreateEntry(ctx, entries.NewEntry{
		Name: "Ann", Address: "Elm 1", Audio: []byte("webm-bytes"), MediaType: "audio/webm",
	}))
	require.NoError(t, client.CreateEntry(ctx, entries.NewEntry{
		Name: "Bo", Address: "Oak 2", Audio: []byte("flac-bytes"), MediaType: "audio/flac",
	}))

	list, err = client.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ann", list[0].Name)
	assert.Equal(t, "Oak 2", list[1].Address)
	assert.NotEmpty(t, list[0].ID)
	assert.Contains(t, list[0].AudioURL, srv.URL+"/uploads/")
	assert.Contains(t, list[0].AudioURL, ".webm")
	assert.Contains(t, list[1].AudioURL, ".flac")

	resp, err := http.Get(list[0].AudioURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "webm-bytes", string(body))
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	s := newTestServer(t, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Ann")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/data/submit", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Message)
}

func TestListEnvelopeWithPublicURL(t *testing.T) {
	s := newTestServer(t, Options{PublicURL: "https://cdn.example/"})
	_, err := s.store.Create(context.Background(), "Ann", "Elm", "audio/webm", ".webm", []byte("x"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Datas, 1)
	assert.Regexp(t, `^https://cdn\.example/uploads/[0-9a-f-]{36}\.webm$`, out.Datas[0].URL)
}

func TestAudioExt(t *testing.T) {
	assert.Equal(t, ".webm", audioExt("recording.webm", "audio/webm"))
	assert.Equal(t, ".flac", audioExt("", "audio/flac"))
	assert.Equal(t, ".webm", audioExt("../../etc/passwd", "audio/webm;codecs=opus"))
	assert.Equal(t, ".ogg", audioExt("clip.OGG", ""))
}
