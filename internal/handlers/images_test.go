package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/petermazzocco/tile-studio-api/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, field, filename, contentType string, data []byte) (int, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, field, filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/upload-room", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.h.Router(RouterOptions{}).ServeHTTP(rec, req)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestUploadRoom(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.upload(t, "roomImage", "kitchen.jpg", "image/jpeg", jpegBytes)
	require.Equal(t, http.StatusOK, code)

	url, ok := body["imageUrl"].(string)
	require.True(t, ok)
	assert.Regexp(t, `^/uploads/[0-9a-f-]{36}\.jpg$`, url)
	assert.Len(t, env.uploadedFiles(t), 1)

	resp, err := http.Get(env.srv.URL + url)
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, jpegBytes, got)
}

func TestUploadRoomStoresHTMLNameAsPNG(t *testing.T) {
	env := newTestEnv(t)
	data := append(append([]byte{}, pngBytes...), []byte("<html><script>alert(document.cookie)</script></html>")...)

	code, body := env.upload(t, "roomImage", "x.html", "image/png", data)
	require.Equal(t, http.StatusOK, code)

	url, ok := body["imageUrl"].(string)
	require.True(t, ok)
	assert.Regexp(t, `^/uploads/[0-9a-f-]{36}\.png$`, url)

	resp, err := http.Get(env.srv.URL + url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestUploadRoomRejectsGIF(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.upload(t, "roomImage", "anim.gif", "image/gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["message"])
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUploadRoomRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t)
	big := append(append([]byte{}, jpegBytes...), bytes.Repeat([]byte{0xAB}, 20<<20)...)

	code, body := env.upload(t, "roomImage", "huge.jpg", "image/jpeg", big)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["message"])
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUploadRoomRejectsSpoofedContent(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.upload(t, "roomImage", "room.png", "image/png", []byte("<?php echo 'hi'; ?>"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, env.uploadedFiles(t))
}

func TestUploadRoomMissingFile(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.upload(t, "otherField", "room.png", "image/png", pngBytes)
	assert.Equal(t, http.StatusBadRequest, code)

	resp, _ := env.postJSON(t, "/upload-room", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateTileProducesDistinctAssets(t *testing.T) {
	env := newTestEnv(t)

	resp, first := env.postJSON(t, "/generate-tile", map[string]string{"prompt": "blue terrazzo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, second := env.postJSON(t, "/generate-tile", map[string]string{"prompt": "blue terrazzo"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	a, b := first["tileUrl"].(string), second["tileUrl"].(string)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `\.png$`, a)
	for _, url := range []string{a, b} {
		r, err := http.Get(env.srv.URL + url)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusOK, r.StatusCode)
	}
}

func TestGenerateTileErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/generate-tile", map[string]string{"prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Prompt is required", body["message"])

	env.ai.err = &ai.ExternalServiceError{Op: "generate tile", Err: errors.New("quota exceeded")}
	resp, body = env.postJSON(t, "/generate-tile", map[string]string{"prompt": "marble"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, body["message"])
	assert.Empty(t, env.uploadedFiles(t))
}

func TestGenerateTileBadPayloadFromProvider(t *testing.T) {
	env := newTestEnv(t)
	env.ai.tileB64 = "###"

	resp, _ := env.postJSON(t, "/generate-tile", map[string]string{"prompt": "marble"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAIPreview(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/ai-preview", map[string]string{
		"roomImageUrl": "/uploads/room.jpg",
		"tileImageUrl": "/uploads/tile.png",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/final.png", body["finalImage"])

	resp, _ = env.postJSON(t, "/api/ai-preview", map[string]string{"roomImageUrl": "/uploads/room.jpg"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.preview.err = &ai.ExternalServiceError{Op: "ai preview", Err: errors.New("timeout")}
	resp, body = env.postJSON(t, "/api/ai-preview", map[string]string{
		"roomImageUrl": "/uploads/room.jpg",
		"tileImageUrl": "/uploads/tile.png",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, body["message"])
}
