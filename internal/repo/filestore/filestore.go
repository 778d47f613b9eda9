// Package filestore saves uploads to a local directory served under /static/uploads.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

type Store interface {
	// Save stores a user supplied file and returns the generated filename.
	Save(ctx context.Context, upload models.Upload) (string, error)
	// SaveAudio stores a recorded voice note as webm.
	SaveAudio(ctx context.Context, upload models.Upload) (string, error)
	Remove(ctx context.Context, filename string) error
}

type localStore struct {
	dir      string
	maxBytes int64
	allowed  []string
	now      func() time.Time
}

func New(cfg config.UploadConfig) (Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &localStore{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		allowed:  cfg.AllowedExtensions,
		now:      time.Now,
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize keeps the base name only and replaces anything outside [A-Za-z0-9._-].
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	return name
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func (s *localStore) Save(ctx context.Context, upload models.Upload) (string, error) {
	name := sanitize(upload.Filename)
	if name == "" {
		return "", models.InvalidArgument("nome de arquivo inválido")
	}
	if !util.SliceIncludes(s.allowed, extension(name)) {
		return "", models.InvalidArgument("tipo de arquivo não permitido: %s", extension(name))
	}
	filename := fmt.Sprintf("%d_%s", s.now().UnixNano(), name)
	return filename, s.write(filename, upload)
}

func (s *localStore) SaveAudio(ctx context.Context, upload models.Upload) (string, error) {
	filename := fmt.Sprintf("audio_%d.webm", s.now().UnixNano())
	return filename, s.write(filename, upload)
}

func (s *localStore) write(filename string, upload models.Upload) error {
	if upload.Size > s.maxBytes {
		return models.InvalidArgument("arquivo excede %d bytes", s.maxBytes)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, filename), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	n, err := io.Copy(f, io.LimitReader(upload.Content, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil && n > s.maxBytes {
		err = models.InvalidArgument("arquivo excede %d bytes", s.maxBytes)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, filename))
		return err
	}
	return nil
}

func (s *localStore) Remove(_ context.Context, filename string) error {
	name := sanitize(filename)
	if name == "" || name != filename {
		return models.InvalidArgument("nome de arquivo inválido")
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
