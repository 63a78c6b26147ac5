package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GabrieleRisso/qvm-remote/internal/version"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	require.True(t, strings.HasPrefix(out.String(), "qvm-remote "+version.Version))
}
