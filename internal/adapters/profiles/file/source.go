package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
)

const (
	sourceDirMode  = 0o755
	profileFileMod = 0o644
	profileExt     = ".md"
)

// Source reads persona profiles from <root>/<persona id>.md.
type Source struct {
	root string
	mu   sync.RWMutex
}

var _ ports.ProfileSource = (*Source)(nil)

func NewSource(root string) *Source {
	return &Source{root: filepath.Clean(root)}
}

func (s *Source) Root() string {
	return s.root
}

func (s *Source) Get(ctx context.Context, id domain.PersonaID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.pathForID(id)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("profile %q in %s: %w", id, s.root, domain.ErrProfileNotFound)
		}
		return "", fmt.Errorf("read profile %q: %w", id, err)
	}

	return string(data), nil
}

// Put writes a profile through a temp file so readers never see a partial
// document. An existing profile is only replaced when overwrite is set.
func (s *Source) Put(ctx context.Context, id domain.PersonaID, profile string, overwrite bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := s.pathForID(id)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(s.root, sourceDirMode); err != nil {
		return false, fmt.Errorf("create profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp profile: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.WriteString(profile); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write temp profile: %w", err)
	}
	if err := tmp.Chmod(profileFileMod); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("chmod temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("replace profile %q: %w", id, err)
	}

	return true, nil
}

func (s *Source) pathForID(id domain.PersonaID) (string, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return "", errors.New("persona id is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." || strings.ContainsRune(cleaned, filepath.Separator) {
		return "", fmt.Errorf("invalid persona id %q", id)
	}

	return filepath.Join(s.root, cleaned+profileExt), nil
}
