package urlsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProviderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls")
	content := "https://example.com/a.xml tech \"my tag\"\n" +
		"# a comment\n" +
		"\n" +
		"https://example.com/b.xml ~Override\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := &FileProvider{Path: path}
	result, err := p.Load()
	require.NoError(t, err)
	require.Len(t, result.URLs, 2)

	assert.Equal(t, "https://example.com/a.xml", result.URLs[0].URL)
	assert.Equal(t, []string{"tech", "my tag"}, result.URLs[0].Tags)

	assert.Equal(t, []string{"~Override"}, result.URLs[1].Tags)
}

func TestFileProviderMissingFileIsEmpty(t *testing.T) {
	p := &FileProvider{Path: filepath.Join(t.TempDir(), "does-not-exist")}
	result, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, result.URLs)
}

func TestFileProviderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls")
	p := &FileProvider{Path: path}

	subs := []Subscription{
		{URL: "https://example.com/a.xml", Tags: []string{"one", "two words"}},
	}
	require.NoError(t, p.Write(subs))

	result, err := p.Load()
	require.NoError(t, err)
	require.Len(t, result.URLs, 1)
	assert.Equal(t, subs[0].URL, result.URLs[0].URL)
	assert.Equal(t, subs[0].Tags, result.URLs[0].Tags)
}
