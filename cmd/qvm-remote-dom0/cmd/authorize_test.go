package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func execDom0(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestAuthorizeRevokeKeysRoundTrip(t *testing.T) {
	keyDir := t.TempDir()
	hexKey := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	execDom0(t, "--key-dir", keyDir, "authorize", "work", hexKey)

	listing := execDom0(t, "--key-dir", keyDir, "keys")
	require.Contains(t, listing, "work")

	execDom0(t, "--key-dir", keyDir, "revoke", "work")

	listing = execDom0(t, "--key-dir", keyDir, "keys")
	require.NotContains(t, listing, "work")
}

func TestAuthorizeRefusesToOverwriteWithoutForce(t *testing.T) {
	keyDir := t.TempDir()
	hexKey := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	execDom0(t, "--key-dir", keyDir, "authorize", "work", hexKey)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--key-dir", keyDir, "authorize", "work", hexKey})
	require.Error(t, rootCmd.Execute())
}
