package domain

import "errors"

var (
	ErrPersonaNotFound        = errors.New("persona not found")
	ErrDuplicatePersona       = errors.New("duplicate persona id")
	ErrNotAGroup              = errors.New("persona is not a group")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrProfileAlreadyAssigned = errors.New("profile already assigned")
	ErrConversationBusy       = errors.New("conversation is busy")
	ErrEmptyMessage           = errors.New("message is empty")
)
