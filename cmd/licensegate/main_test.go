package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensegate/internal/shared/testutil"
	"licensegate/pkg/contracts"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "licensegate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, contracts.GetVersionString())
}

func TestCheckSource(t *testing.T) {
	srv := testutil.NewKeyListServer(t, "KEY-1", "KEY-2", "KEY-3")

	path := writeConfig(t, "variant: remote\nkey_source:\n  type: http\n  url: "+srv.URL+"\n")

	out, err := execute(t, "check-source", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "3 keys\n", out)
}

func TestCheckSourceFetchFailure(t *testing.T) {
	srv := testutil.NewKeyListServer(t, "KEY-1")
	srv.Fail(http.StatusBadGateway)

	path := writeConfig(t, "variant: remote\nkey_source:\n  url: "+srv.URL+"\n")

	_, err := execute(t, "check-source", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestCheckSourceRequiresRemote(t *testing.T) {
	path := writeConfig(t, "variant: static\n")

	_, err := execute(t, "check-source", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote variant")
}

func TestVariantOverrideIsValidated(t *testing.T) {
	path := writeConfig(t, "variant: static\n")

	_, err := execute(t, "serve", "--config", path, "--variant", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid variant")
}

func TestRemoteOverrideNeedsURL(t *testing.T) {
	path := writeConfig(t, "variant: static\n")

	_, err := execute(t, "check-source", "--config", path, "--variant", "remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key source url is required")
}
