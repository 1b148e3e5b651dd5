package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/bimg"
	"github.com/sirupsen/logrus"
)

// URLPrefix is the public path assets are served under.
const URLPrefix = "/uploads/"


type Asset struct {
	Name string `json:"name"`
	Path string `json:"-"`
	URL  string `json:"url"`
}

// Store writes assets to a flat directory under random names.
type Store struct {
	dir       string
	publicURL string
	policy    Policy
	mirror    Mirror
	log       logrus.FieldLogger
}

// NewStore creates dir if it does not exist. mirror may be nil.
func NewStore(dir, publicURL string, policy Policy, mirror Mirror, log logrus.FieldLogger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		policy:    policy,
		mirror:    mirror,
		log:       log,
	}, nil
}

func (s *Store) Policy() Policy { return s.policy }

// SaveUpload persists a client-supplied image. The extension of filename is
// kept only when it belongs to contentType, since the file server derives the
// served Content-Type from it. The rest of the name is a random token.
func (s *Store) SaveUpload(ctx context.Context, filename, contentType string, data []byte) (Asset, error) {
	if err := s.policy.Check(contentType, int64(len(data))); err != nil {
		return Asset{}, err
	}
	switch bimg.DetermineImageType(data) {
	case bimg.JPEG, bimg.PNG:
	default:
		return Asset{}, ErrUnsupportedMediaType
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !s.policy.extensionMatches(contentType, ext) {
		ext = s.policy.extensionFor(contentType)
	}
	return s.write(ctx, ext, normalizeType(contentType), data)
}

// SaveGenerated persists AI output under the same naming policy as uploads.
func (s *Store) SaveGenerated(ctx context.Context, data []byte) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("generated image is empty")
	}
	return s.write(ctx, ".png", "image/png", data)
}

func (s *Store) write(ctx context.Context, ext, contentType string, data []byte) (Asset, error) {
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Asset{}, fmt.Errorf("create asset: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Asset{}, fmt.Errorf("close asset: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, "uploads/"+name, contentType, data); err != nil {
			s.log.WithError(err).WithField("file", name).Warn("asset mirror failed")
		}
	}

	return Asset{Name: name, Path: path, URL: s.publicURL + URLPrefix + name}, nil
}

// FileServer serves stored assets. Directories are reported as missing.
func (s *Store) FileServer() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(filesOnly{http.Dir(s.dir)}))
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if st.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// SaveGeneratedBase64 decodes a base64 image payload and stores it.
func (s *Store) SaveGeneratedBase64(ctx context.Context, b64 string) (Asset, error) {
	data, err := DecodeBase64(b64)
	if err != nil {
		return Asset{}, err
	}
	return s.SaveGenerated(ctx, data)
}

// DecodeBase64 decodes an image payload returned by the image API.
func DecodeBase64(b64 string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
