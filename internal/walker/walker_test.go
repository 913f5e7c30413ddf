package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalk_SkipsIgnoredAndDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.log"), "b")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "c")
	writeFile(t, filepath.Join(root, ".packignore"), ".log\n# comment\n\n")

	ignore, err := LoadIgnoreList(root)
	require.NoError(t, err)

	var got []string
	err = Walk(root, ignore, func(e Entry) error {
		got = append(got, e.RelPath)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(got)
	require.Equal(t, []string{"a.txt", "sub/c.txt"}, got)
}

func TestLoadIgnoreList_MissingFileIsPermissive(t *testing.T) {
	root := t.TempDir()
	ignore, err := LoadIgnoreList(root)
	require.NoError(t, err)
	require.False(t, ignore.Matches("anything.txt"))
}

func TestWalk_PropagatesFirstError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")

	boom := os.ErrPermission
	called := 0
	err := Walk(root, IgnoreList{}, func(e Entry) error {
		called++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, called)
}

func TestIgnoreList_SubstringNotGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".packignore"), "build/")

	ignore, err := LoadIgnoreList(root)
	require.NoError(t, err)
	require.True(t, ignore.Matches("build/output.bin"))
	require.False(t, ignore.Matches("rebuild-notes.txt"))
}
