package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func newTestMergeCmd(out *bytes.Buffer) *cobra.Command {
	cmd := newRootCmd()
	cmd.AddCommand(newMergeCmd())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	return cmd
}

func TestMergeCmd(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Merge", mock.Anything, domain.MergeArgs{
		Store:   "all.db",
		Sources: []m.Path{"a.db", "b.db"},
	}).Return(2, nil)

	out := &bytes.Buffer{}
	cmd := newTestMergeCmd(out)
	cmd.SetArgs([]string{"merge", "--store", "all.db", "a.db", "b.db"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "merged 2 session(s) into all.db")
}

func TestMergeCmd_Errors(t *testing.T) {
	t.Run("no sources", func(t *testing.T) {
		mw := newMockWorkflow(t)
		useWorkflow(t, mw)

		cmd := newTestMergeCmd(&bytes.Buffer{})
		cmd.SetArgs([]string{"merge"})

		require.Error(t, cmd.Execute())
	})

	t.Run("workflow error", func(t *testing.T) {
		mw := newMockWorkflow(t)
		useWorkflow(t, mw)

		mw.On("Merge", mock.Anything, mock.Anything).Return(0, errors.New("disk full"))

		out := &bytes.Buffer{}
		cmd := newTestMergeCmd(out)
		cmd.SetArgs([]string{"merge", "a.db"})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NotContains(t, out.String(), "merged")
	})
}
