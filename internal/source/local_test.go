package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLocal_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "lib/util.py", "def f():\n    pass\n")
	writeFile(t, root, "Dockerfile", "FROM scratch\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = 1\n")
	writeFile(t, root, "vendor/x/x.go", "package x\n")
	writeFile(t, root, "build/gen.go", "package gen\n")
	writeFile(t, root, "debug.txt", "ignored\n")
	writeFile(t, root, "logo.png", "\x89PNG")
	writeFile(t, root, "blob.c", "int x;\x00\x01")
	writeFile(t, root, ".gitignore", "build/\ndebug.txt\n")

	snap, err := NewLocal(root, nil).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(root), snap.Repo)
	assert.NotEmpty(t, snap.Branch)
	assert.Equal(t, []string{"Dockerfile", "lib/util.py", "main.go"}, snap.Paths())
	assert.Equal(t, "package main\n", snap.Files[2].Content)
}

func TestLocal_LoadSkipsOversized(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, maxFileBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	writeFile(t, root, "big.txt", string(big))
	writeFile(t, root, "small.txt", "ok")

	snap, err := NewLocal(root, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, snap.Paths())
}

func TestLocal_LoadErrors(t *testing.T) {
	_, err := NewLocal(filepath.Join(t.TempDir(), "missing"), nil).Load(context.Background())
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, root, "file.go", "package x")
	_, err = NewLocal(filepath.Join(root, "file.go"), nil).Load(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_Tree(t *testing.T) {
	snap := Snapshot{Repo: "app", Branch: "dev", Files: nil}
	assert.Equal(t, "Project Structure (app @ dev):\n", snap.Tree())
}
