package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entry, content := range entries {
		ew, err := w.Create(entry)
		require.NoError(t, err)
		_, err = ew.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return p
}

func TestFromArchives(t *testing.T) {
	dir := t.TempDir()
	first := writeZip(t, dir, "enero.zip", map[string]string{
		"b/fv002.xml":           "<Invoice>2</Invoice>",
		"fv001.XML":             "<Invoice>1</Invoice>",
		"fv001.pdf":             "%PDF-1.4",
		"__MACOSX/._fv001.XML": "junk",
	})
	second := writeZip(t, dir, "febrero.zip", map[string]string{
		"ad0003.xml": "<AttachedDocument/>",
	})

	docs := FromArchives([]string{first, second})

	require.Len(t, docs, 3)
	assert.Equal(t, "enero.zip!b/fv002.xml", docs[0].ID)
	assert.Equal(t, "<Invoice>2</Invoice>", string(docs[0].Data))
	assert.Equal(t, "enero.zip!fv001.XML", docs[1].ID)
	assert.Equal(t, "febrero.zip!ad0003.xml", docs[2].ID)
	for _, d := range docs {
		assert.NoError(t, d.Err)
	}
}

func TestFromArchivesCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "roto.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0644))
	good := writeZip(t, dir, "ok.zip", map[string]string{"a.xml": "<Invoice/>"})

	docs := FromArchives([]string{bad, good})

	require.Len(t, docs, 2)
	assert.Equal(t, "roto.zip", docs[0].ID)
	assert.Error(t, docs[0].Err)
	assert.Nil(t, docs[0].Data)
	assert.Equal(t, "ok.zip!a.xml", docs[1].ID)
	assert.NoError(t, docs[1].Err)
}

func TestFromArchivesMissingFile(t *testing.T) {
	docs := FromArchives([]string{filepath.Join(t.TempDir(), "none.zip")})
	require.Len(t, docs, 1)
	assert.Error(t, docs[0].Err)
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "suelta.xml")
	require.NoError(t, os.WriteFile(p, []byte("<Invoice/>"), 0644))
	missing := filepath.Join(dir, "missing.xml")

	docs := FromFiles([]string{p, missing})

	require.Len(t, docs, 2)
	assert.Equal(t, p, docs[0].ID)
	assert.Equal(t, "<Invoice/>", string(docs[0].Data))
	assert.Equal(t, missing, docs[1].ID)
	assert.Error(t, docs[1].Err)
}

func TestIsXML(t *testing.T) {
	assert.True(t, IsXML("a.xml"))
	assert.True(t, IsXML("dir/A.XML"))
	assert.False(t, IsXML("a.pdf"))
	assert.False(t, IsXML("xml"))
}
