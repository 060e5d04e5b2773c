package ports

import (
	"context"

	"github.com/bnema/chatsim/internal/domain"
)

type RosterRepository interface {
	List(ctx context.Context) ([]domain.Persona, error)
	Save(ctx context.Context, personas []domain.Persona) error
}
