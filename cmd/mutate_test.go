package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func newTestMutateCmd() *cobra.Command {
	cmd := newRootCmd()
	cmd.AddCommand(newMutateCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	return cmd
}

func TestMutateCmd(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Mutate", mock.Anything, domain.MutateArgs{
		Program: "seeds/Hot.java",
		Mutator: m.LoopUnrolling,
		Seed:    9,
		Write:   "out/Hot.java",
	}).Return(m.Mutation{}, nil)

	cmd := newTestMutateCmd()
	cmd.SetArgs([]string{"mutate", "seeds/Hot.java", "-m", "loop-unrolling", "--seed", "9", "-w", "out/Hot.java"})

	require.NoError(t, cmd.Execute())
}

func TestMutateCmd_DefaultSeed(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Mutate", mock.Anything, domain.MutateArgs{
		Program: "Hot.java",
		Mutator: m.DeadCodeElimination,
		Seed:    1,
	}).Return(m.Mutation{}, nil)

	cmd := newTestMutateCmd()
	cmd.SetArgs([]string{"mutate", "Hot.java", "--mutator", "DEAD_CODE_ELIMINATION"})

	require.NoError(t, cmd.Execute())
}

func TestMutateCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"missing mutator", []string{"mutate", "Hot.java"}, "mutator"},
		{"unknown mutator", []string{"mutate", "Hot.java", "-m", "shuffle"}, "invalid --mutator"},
		{"missing file", []string{"mutate", "-m", "inline"}, "arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := newMockWorkflow(t)
			useWorkflow(t, mw)

			cmd := newTestMutateCmd()
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			mw.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything)
		})
	}
}
