package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		persona Persona
		wantErr string
	}{
		{
			name:    "valid",
			persona: Persona{ID: "1", DisplayName: "榆木华"},
		},
		{
			name:    "missing id",
			persona: Persona{DisplayName: "榆木华"},
			wantErr: "id is required",
		},
		{
			name:    "missing name",
			persona: Persona{ID: "1"},
			wantErr: "name is required",
		},
		{
			name:    "group includes itself",
			persona: Persona{ID: "group", DisplayName: "群聊", ParticipantIDs: []PersonaID{"1", "group"}},
			wantErr: "cannot include itself",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.persona.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPersonaNormalizeParticipants(t *testing.T) {
	t.Parallel()

	persona := Persona{ID: "group", ParticipantIDs: []PersonaID{" 1 ", "2", "", "1", "3"}}
	persona.NormalizeParticipants()

	assert.Equal(t, []PersonaID{"1", "2", "3"}, persona.ParticipantIDs)
	assert.True(t, persona.IsGroup())
}

func TestValidateRoster(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateRoster(DefaultRoster()))

	duplicate := append(DefaultRoster(), Persona{ID: "1", DisplayName: "again"})
	assert.ErrorIs(t, ValidateRoster(duplicate), ErrDuplicatePersona)

	missing := []Persona{{ID: "group", DisplayName: "群聊", ParticipantIDs: []PersonaID{"9"}}}
	assert.ErrorIs(t, ValidateRoster(missing), ErrPersonaNotFound)

	nested := []Persona{
		{ID: "a", DisplayName: "A", ParticipantIDs: []PersonaID{"c"}},
		{ID: "b", DisplayName: "B", ParticipantIDs: []PersonaID{"a"}},
		{ID: "c", DisplayName: "C"},
	}
	err := ValidateRoster(nested)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is itself a group")
}
