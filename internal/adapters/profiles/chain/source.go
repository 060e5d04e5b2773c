package chain

import (
	"context"
	"errors"
	"fmt"

	filesource "github.com/bnema/chatsim/internal/adapters/profiles/file"
	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
)

// Source consults the primary profile source first and the fallback when
// the primary cannot serve the profile.
type Source struct {
	primary  ports.ProfileSource
	fallback ports.ProfileSource
}

var _ ports.ProfileSource = (*Source)(nil)

var (
	errNilPrimarySource  = errors.New("primary profile source is nil")
	errNilFallbackSource = errors.New("fallback profile source is nil")
)

func NewSource(primary ports.ProfileSource, fallback ports.ProfileSource) *Source {
	source, err := NewSourceChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return source
}

func NewSourceChecked(primary ports.ProfileSource, fallback ports.ProfileSource) (*Source, error) {
	if primary == nil {
		return nil, errNilPrimarySource
	}
	if fallback == nil {
		return nil, errNilFallbackSource
	}

	return &Source{primary: primary, fallback: fallback}, nil
}

// NewDirectories reads profiles from dir, then from fallbackDir.
func NewDirectories(dir string, fallbackDir string) *Source {
	return NewSource(filesource.NewSource(dir), filesource.NewSource(fallbackDir))
}

func (s *Source) Get(ctx context.Context, id domain.PersonaID) (string, error) {
	profile, err := s.primary.Get(ctx, id)
	if err == nil {
		return profile, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackProfile, fallbackErr := s.fallback.Get(ctx, id)
	if fallbackErr == nil {
		return fallbackProfile, nil
	}
	if errors.Is(err, domain.ErrProfileNotFound) && errors.Is(fallbackErr, domain.ErrProfileNotFound) {
		return "", fmt.Errorf("profile %q: %w", id, domain.ErrProfileNotFound)
	}

	return "", fmt.Errorf("primary source get failed: %w; fallback source get failed: %w", err, fallbackErr)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
