package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneRepoSkipsExistingClone(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.MkdirAll(RepoPath(baseDir), 0755))

	//must not try to reach the network when the clone is already there
	assert.NoError(t, CloneRepo(baseDir))
}

func TestMaskModelPath(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "models", "u2netp.onnx"), MaskModelPath("base"))
}
