package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func readMembers(t *testing.T, path, password string) ([]string, map[string]string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	contents := make(map[string]string)
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(b)
	}
	return names, contents
}

func TestBuild_EncryptedInOrder(t *testing.T) {
	dir := t.TempDir()
	members := []Member{
		{Name: "report.pdf", Path: writeTemp(t, dir, "001-report.pdf", "pdf bytes")},
		{Name: "notes.txt", Path: writeTemp(t, dir, "002-notes.txt", "some notes")},
	}

	res, err := Build(filepath.Join(dir, "Secure.zip"), members, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Members)
	assert.True(t, res.Encrypted)
	assert.Positive(t, res.Size)
	assert.Len(t, res.Checksum, 64)

	r, err := zip.OpenReader(res.Path)
	require.NoError(t, err)
	for _, f := range r.File {
		assert.True(t, f.IsEncrypted(), f.Name)
	}
	r.Close()

	names, contents := readMembers(t, res.Path, "abc123")
	assert.Equal(t, []string{"report.pdf", "notes.txt"}, names)
	assert.Equal(t, "pdf bytes", contents["report.pdf"])
	assert.Equal(t, "some notes", contents["notes.txt"])
}

func TestBuild_EmptyPasswordIsPlain(t *testing.T) {
	dir := t.TempDir()
	members := []Member{{Name: "a.txt", Path: writeTemp(t, dir, "a", "x")}}

	res, err := Build(filepath.Join(dir, "out.zip"), members, "")
	require.NoError(t, err)
	assert.False(t, res.Encrypted)

	names, contents := readMembers(t, res.Path, "")
	assert.Equal(t, []string{"a.txt"}, names)
	assert.Equal(t, "x", contents["a.txt"])
}

func TestBuild_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Build(filepath.Join(dir, "none.zip"), nil, "pw")
	require.ErrorIs(t, err, ErrNoFiles)

	dst := filepath.Join(dir, "broken.zip")
	_, err = Build(dst, []Member{{Name: "gone", Path: filepath.Join(dir, "missing")}}, "pw")
	require.Error(t, err)
	assert.NoFileExists(t, dst)
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("0123456789"), 25) // 250 bytes
	path := filepath.Join(dir, "Secure.zip")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	parts, err := Split(path, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{path + ".001", path + ".002", path + ".003"}, parts)
	assert.NoFileExists(t, path)

	var joined []byte
	for i, p := range parts {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		if i < 2 {
			assert.Len(t, b, 100)
		}
		joined = append(joined, b...)
	}
	assert.Equal(t, data, joined)
}

func TestSplit_ExactMultiple(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.zip")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 200), 0o600))

	parts, err := Split(path, 100)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
	assert.NoFileExists(t, path+".003")
}

func TestSplit_SmallFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "small.zip", "tiny")

	parts, err := Split(path, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, parts)
	assert.FileExists(t, path)

	_, err = Split(path, 0)
	require.Error(t, err)
}
