package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRejectsInvalidIDs(t *testing.T) {
	t.Parallel()

	source := NewSource(t.TempDir())
	testCases := []struct {
		name    string
		id      domain.PersonaID
		wantErr string
	}{
		{name: "empty", id: "", wantErr: "persona id is empty"},
		{name: "whitespace", id: "   ", wantErr: "persona id is empty"},
		{name: "absolute", id: "/etc/passwd", wantErr: "invalid persona id"},
		{name: "traversal", id: "../escape", wantErr: "invalid persona id"},
		{name: "nested", id: "a/b", wantErr: "invalid persona id"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := source.Get(context.Background(), tc.id)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestSourceGetReadsMarkdownProfile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	want := "# 榆木华\n活跃度 (talkativeness)：0.8\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "1.md"), []byte(want), 0o644))

	got, err := NewSource(root).Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSourceGetMissingProfile(t *testing.T) {
	t.Parallel()

	_, err := NewSource(t.TempDir()).Get(context.Background(), "2")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestSourcePutKeepsExistingUnlessOverwrite(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "prompts")
	source := NewSource(root)

	written, err := source.Put(context.Background(), "3", "first", false)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = source.Put(context.Background(), "3", "second", false)
	require.NoError(t, err)
	assert.False(t, written)

	got, err := source.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	written, err = source.Put(context.Background(), "3", "third", true)
	require.NoError(t, err)
	assert.True(t, written)

	info, err := os.Stat(filepath.Join(root, "3.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(profileFileMod), info.Mode().Perm())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSourceHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSource(t.TempDir()).Get(ctx, "1")
	require.ErrorIs(t, err, context.Canceled)
}
