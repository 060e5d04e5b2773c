package ports

import "context"

type InstructionSource interface {
	Load(ctx context.Context) ([]string, error)
}
