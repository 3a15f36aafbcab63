package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"jitfuzz.dev/pkg/jitfuzz/internal/controller"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type mockWorkflow struct {
	mock.Mock
}

func newMockWorkflow(t *testing.T) *mockWorkflow {
	t.Helper()

	mw := &mockWorkflow{}
	mw.Test(t)
	t.Cleanup(func() { mw.AssertExpectations(t) })

	return mw
}

// useWorkflow swaps the package workflow for the duration of the test.
func useWorkflow(t *testing.T, wf domain.Workflow) {
	t.Helper()

	original := workflow
	workflow = wf

	t.Cleanup(func() { workflow = original })
}

func (mw *mockWorkflow) Run(ctx context.Context, args domain.CampaignArgs) (m.CampaignSummary, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(m.CampaignSummary), ret.Error(1)
}

func (mw *mockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return mw.Called(ctx, args).Error(0)
}

func (mw *mockWorkflow) Mutate(ctx context.Context, args domain.MutateArgs) (m.Mutation, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(m.Mutation), ret.Error(1)
}

func (mw *mockWorkflow) Score(ctx context.Context, args domain.ScoreArgs) (controller.ScoreReport, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(controller.ScoreReport), ret.Error(1)
}

func (mw *mockWorkflow) View(ctx context.Context, args domain.ViewArgs) (m.CampaignSummary, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(m.CampaignSummary), ret.Error(1)
}

func (mw *mockWorkflow) Merge(ctx context.Context, args domain.MergeArgs) (int, error) {
	ret := mw.Called(ctx, args)
	return ret.Int(0), ret.Error(1)
}
