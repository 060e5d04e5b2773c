package ports

import (
	"context"
	"io"

	"github.com/bnema/chatsim/internal/domain"
)

// Generator sends a request to the text-generation service and returns the
// raw response stream. Closing the reader ends the request.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (io.ReadCloser, error)
}
