package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(file, []byte("  from-file\n"), 0o600))
	t.Setenv("CV_MATCHER_TEST_KEY", " from-env ")

	got, err := Load(Source{Name: "api key", Value: "inline", File: file, Env: "CV_MATCHER_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Load(Source{Value: " inline ", Env: "CV_MATCHER_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	got, err = Load(Source{Env: "CV_MATCHER_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte(" \n"), 0o600))
	t.Setenv("CV_MATCHER_TEST_UNSET", "")

	_, err := Load(Source{Name: "api key", File: empty})
	assert.ErrorContains(t, err, "is empty")

	_, err = Load(Source{Name: "api key", File: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "reading api key")

	_, err = Load(Source{Name: "api key", Env: "CV_MATCHER_TEST_UNSET"})
	assert.EqualError(t, err, "api key is not configured (set CV_MATCHER_TEST_UNSET)")

	_, err = Load(Source{})
	assert.EqualError(t, err, "secret is not configured")
}
