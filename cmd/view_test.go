package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func TestViewCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.ViewArgs
	}{
		{
			"latest session in default store",
			[]string{"view"},
			domain.ViewArgs{Store: m.Path(filepath.Join(defaultOutputDir, defaultStoreFileName))},
		},
		{
			"store follows output",
			[]string{"-o", "runs", "view", "20260101-120000"},
			domain.ViewArgs{Store: m.Path(filepath.Join("runs", defaultStoreFileName)), Session: "20260101-120000"},
		},
		{
			"explicit store",
			[]string{"view", "--store", "all.db", "nightly"},
			domain.ViewArgs{Store: "all.db", Session: "nightly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := newMockWorkflow(t)
			useWorkflow(t, mw)

			mw.On("View", mock.Anything, tt.want).Return(m.CampaignSummary{}, nil)

			cmd := newRootCmd()
			cmd.AddCommand(newViewCmd())
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
		})
	}
}

func TestViewCmd_NoSessions(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("View", mock.Anything, mock.Anything).Return(m.CampaignSummary{}, domain.ErrNoSessions)

	cmd := newRootCmd()
	cmd.AddCommand(newViewCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"view"})

	err := cmd.Execute()
	require.ErrorIs(t, err, domain.ErrNoSessions)
	assert.Contains(t, err.Error(), "no sessions")
}
