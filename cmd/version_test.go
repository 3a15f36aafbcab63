package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	root.AddCommand(newVersionCmd())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())

	// Test binaries may lack module version information.
	if out.String() == "version: unknown\n" {
		return
	}

	assert.Contains(t, out.String(), "jitfuzz version")
	assert.Contains(t, out.String(), "go version")
}
