package toml

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
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	rosterFileMode = 0o644
	rosterDirMode  = 0o755
)

// RosterRepository stores the persona roster in a TOML file, or YAML when
// the path ends in .yaml or .yml. A missing file lists the default roster.
type RosterRepository struct {
	path string
	yaml bool
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RosterRepository = (*RosterRepository)(nil)

func NewRosterRepository(path string) (*RosterRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("roster path is empty")
	}

	path, err := normalizeRosterPath(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	return &RosterRepository{
		path: path,
		yaml: ext == ".yaml" || ext == ".yml",
		mu:   lockForPath(path),
	}, nil
}

func (r *RosterRepository) Path() string {
	return r.path
}

// Exists reports whether the roster file has been written.
func (r *RosterRepository) Exists() (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat roster file: %w", err)
}

func (r *RosterRepository) List(ctx context.Context) ([]domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultRoster(), nil
		}
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	file, err := r.decode(data)
	if err != nil {
		return nil, err
	}

	personas := make([]domain.Persona, 0, len(file.Personas))
	for _, persona := range file.Personas {
		personas = append(personas, fromPersonaSchema(persona))
	}

	return personas, nil
}

func (r *RosterRepository) Save(ctx context.Context, personas []domain.Persona) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateRoster(personas); err != nil {
		return fmt.Errorf("validate roster: %w", err)
	}

	file := rosterSchema{}
	file.applyDefaults()
	for _, persona := range personas {
		file.Personas = append(file.Personas, toPersonaSchema(persona))
	}

	data, err := r.encode(file)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(data)
}

func (r *RosterRepository) decode(data []byte) (rosterSchema, error) {
	var file rosterSchema
	var err error
	if r.yaml {
		err = yaml.Unmarshal(data, &file)
	} else {
		err = toml.Unmarshal(data, &file)
	}
	if err != nil {
		return rosterSchema{}, fmt.Errorf("decode roster file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return rosterSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *RosterRepository) encode(file rosterSchema) ([]byte, error) {
	var data []byte
	var err error
	if r.yaml {
		data, err = yaml.Marshal(file)
	} else {
		data, err = toml.Marshal(file)
	}
	if err != nil {
		return nil, fmt.Errorf("encode roster file: %w", err)
	}

	return data, nil
}

func (r *RosterRepository) write(data []byte) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, rosterDirMode); err != nil {
		return fmt.Errorf("create roster directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".roster-*"+filepath.Ext(r.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp roster file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp roster file: %w", err)
	}
	if err := tempFile.Chmod(rosterFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp roster file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp roster file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace roster file: %w", err)
	}

	cleanup = false
	return nil
}

func normalizeRosterPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve roster path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
