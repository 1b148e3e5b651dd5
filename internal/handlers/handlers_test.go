package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/petermazzocco/tile-studio-api/internal/assets"
	"github.com/petermazzocco/tile-studio-api/internal/auth"
	"github.com/petermazzocco/tile-studio-api/internal/factory"
	"github.com/petermazzocco/tile-studio-api/internal/logging"
	"github.com/petermazzocco/tile-studio-api/internal/store"
	"github.com/petermazzocco/tile-studio-api/models"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1}
)

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	err     error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*models.User{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, email, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, &store.StorageError{Op: "insert user", Err: errors.New("duplicate key")}
	}
	u := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	m.byEmail[email] = u
	return u, nil
}

type fakeAI struct {
	mu      sync.Mutex
	tileB64 string
	reply   string
	err     error
	history []models.ChatTurn
	system  string
}

func (f *fakeAI) GenerateTile(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tileB64, nil
}

func (f *fakeAI) Chat(_ context.Context, history []models.ChatTurn, system string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = history
	f.system = system
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeCompositor struct {
	out string
	err error
}

func (f *fakeCompositor) ReplaceFloor(_ context.Context, room, tile string) (string, error) {
	return f.out, f.err
}

type testEnv struct {
	h         *Handlers
	srv       *httptest.Server
	users     *memUsers
	ai        *fakeAI
	preview   *fakeCompositor
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	log := logging.NewWithOutput("error", io.Discard)

	files, err := assets.NewStore(dir, "", assets.DefaultPolicy(), nil, log)
	require.NoError(t, err)

	env := &testEnv{
		users:     newMemUsers(),
		ai:        &fakeAI{tileB64: base64.StdEncoding.EncodeToString(pngBytes), reply: "สวัสดีครับ"},
		preview:   &fakeCompositor{out: "https://cdn.example.com/final.png"},
		uploadDir: dir,
	}
	env.h = &Handlers{
		Users:     env.users,
		Passwords: auth.NewHasher(auth.MinCost),
		Assets:    files,
		AI:        env.ai,
		Preview:   env.preview,
		Factory:   factory.MustLoad(),
		Sessions:  auth.NewSessionStore("0123456789abcdef0123456789abcdef", false),
		Log:       log,
	}
	env.srv = httptest.NewServer(env.h.Router(RouterOptions{}))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) uploadedFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	return entries
}
