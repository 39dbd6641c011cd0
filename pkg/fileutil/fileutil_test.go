package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/page-archiver/pkg/fileutil"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "simple extension", path: "/a/b/logo.png", want: "png"},
		{name: "no extension", path: "/a/b/logo", want: ""},
		{name: "dotfile counts as extension", path: "/a/.gitignore", want: "gitignore"},
		{name: "multiple dots keep last", path: "/a/archive.tar.gz", want: "gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileutil.GetFileExtension(tt.path))
		})
	}
}

func TestEnsureDirCreatesNestedDirectories(t *testing.T) {
	root := t.TempDir()

	err := fileutil.EnsureDir(root, "images", "nested")
	require.Nil(t, err)

	info, statErr := os.Stat(filepath.Join(root, "images", "nested"))
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	root := t.TempDir()

	require.Nil(t, fileutil.EnsureDir(root, "css"))
	// A pre-existing directory is not an error
	require.Nil(t, fileutil.EnsureDir(root, "css"))
}
