package application

import (
	"testing"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAssignProfileOnlyOnce(t *testing.T) {
	t.Parallel()

	roster, err := NewRoster(domain.DefaultRoster())
	require.NoError(t, err)

	require.NoError(t, roster.AssignProfile("1", "talkativeness: 0.9"))
	assert.ErrorIs(t, roster.AssignProfile("1", "talkativeness: 0.1"), domain.ErrProfileAlreadyAssigned)
	assert.ErrorIs(t, roster.AssignProfile("404", "x"), domain.ErrPersonaNotFound)

	persona, err := roster.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "talkativeness: 0.9", persona.ProfileText)
}

func TestRosterMembers(t *testing.T) {
	t.Parallel()

	roster, err := NewRoster([]domain.Persona{
		{ID: "group", DisplayName: "群聊", ParticipantIDs: []domain.PersonaID{"2", " 1 ", "2"}},
		{ID: "1", DisplayName: "榆木华"},
		{ID: "2", DisplayName: "Snaur"},
	})
	require.NoError(t, err)

	members, err := roster.Members("group")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Snaur", members[0].DisplayName)
	assert.Equal(t, "榆木华", members[1].DisplayName)

	_, err = roster.Members("1")
	assert.ErrorIs(t, err, domain.ErrNotAGroup)
	_, err = roster.Members("missing")
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestRosterListReturnsCopies(t *testing.T) {
	t.Parallel()

	roster, err := NewRoster(domain.DefaultRoster())
	require.NoError(t, err)

	listed := roster.List()
	listed[0].ParticipantIDs[0] = "mutated"

	group, err := roster.Get("group")
	require.NoError(t, err)
	assert.Equal(t, domain.PersonaID("1"), group.ParticipantIDs[0])
}

func TestNewRosterRejectsInvalidRoster(t *testing.T) {
	t.Parallel()

	_, err := NewRoster([]domain.Persona{{ID: "group", DisplayName: "群聊", ParticipantIDs: []domain.PersonaID{"ghost"}}})
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)
}
