package ports

import (
	"context"

	"github.com/bnema/chatsim/internal/domain"
)

type ProfileSource interface {
	Get(ctx context.Context, id domain.PersonaID) (string, error)
}
