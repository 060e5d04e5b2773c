package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceLoadSkipsBlankAndCommentLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "instructions.txt")
	content := "# topics\n讨论周末计划\n\n  聊聊最近看的电影  \r\n#吐槽天气\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pool, err := NewSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"讨论周末计划", "聊聊最近看的电影"}, pool)
}

func TestSourceLoadMissingFileYieldsEmptyPool(t *testing.T) {
	t.Parallel()

	pool, err := NewSource(filepath.Join(t.TempDir(), "missing.txt")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestSourceLoadDirectoryFails(t *testing.T) {
	t.Parallel()

	_, err := NewSource(t.TempDir()).Load(context.Background())
	require.Error(t, err)
}
