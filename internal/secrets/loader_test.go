package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  from-file \n"), 0o600))
	t.Setenv("JOBHUNTER_TEST_TOKEN", "from-env")

	got, err := Load(Source{Name: "notion token", Value: "inline", File: path, Env: "JOBHUNTER_TEST_TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)
}

func TestLoadFallsBackToValueThenEnv(t *testing.T) {
	t.Setenv("JOBHUNTER_TEST_TOKEN", " from-env ")

	got, err := Load(Source{Value: " inline ", Env: "JOBHUNTER_TEST_TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	got, err = Load(Source{Env: "JOBHUNTER_TEST_TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestLoadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, []byte("   "), 0o600))

	_, err := Load(Source{Name: "gemini api key", File: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = Load(Source{Name: "gemini api key", File: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	t.Setenv("JOBHUNTER_TEST_MISSING", "")
	_, err = Load(Source{Name: "gemini api key", Env: "JOBHUNTER_TEST_MISSING"})
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "JOBHUNTER_TEST_MISSING")

	_, err = Load(Source{})
	require.EqualError(t, err, "secret is not configured")
}
