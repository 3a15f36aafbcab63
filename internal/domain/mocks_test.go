package domain

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

type mockMutagen struct {
	mock.Mock
}

func (mm *mockMutagen) Mutate(ctx context.Context, parent *m.TestCase, source []byte, mutator m.MutatorType, seed int64) (m.Mutation, error) {
	args := mm.Called(ctx, parent, source, mutator, seed)
	return args.Get(0).(m.Mutation), args.Error(1)
}

func (mm *mockMutagen) Applicable(ctx context.Context, parent *m.TestCase, source []byte) ([]m.MutatorType, error) {
	args := mm.Called(ctx, parent, source)

	types, _ := args.Get(0).([]m.MutatorType)

	return types, args.Error(1)
}

type mockJVMRunner struct {
	mock.Mock
}

func (mr *mockJVMRunner) Compile(ctx context.Context, classDir, source m.Path) (m.Execution, error) {
	args := mr.Called(ctx, classDir, source)
	return args.Get(0).(m.Execution), args.Error(1)
}

func (mr *mockJVMRunner) Run(ctx context.Context, classDir m.Path, mainClass string, flags []string) (m.Execution, error) {
	args := mr.Called(ctx, classDir, mainClass, flags)
	return args.Get(0).(m.Execution), args.Error(1)
}

type mockSourceFS struct {
	mock.Mock
}

func (mf *mockSourceFS) Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.File, error) {
	args := mf.Called(ctx, paths, exclude)

	files, _ := args.Get(0).([]m.File)

	return files, args.Error(1)
}

func (mf *mockSourceFS) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	args := mf.Called(ctx, path)

	content, _ := args.Get(0).([]byte)

	return content, args.Error(1)
}

func (mf *mockSourceFS) WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error {
	return mf.Called(ctx, path, content, perm).Error(0)
}

func (mf *mockSourceFS) HashFile(ctx context.Context, path m.Path) (string, error) {
	args := mf.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (mf *mockSourceFS) CreateTempDir(ctx context.Context, pattern string) (m.Path, error) {
	args := mf.Called(ctx, pattern)
	return args.Get(0).(m.Path), args.Error(1)
}

func (mf *mockSourceFS) MkdirAll(ctx context.Context, path m.Path) error {
	return mf.Called(ctx, path).Error(0)
}

func (mf *mockSourceFS) RemoveAll(ctx context.Context, path m.Path) error {
	return mf.Called(ctx, path).Error(0)
}

func (mf *mockSourceFS) JoinPath(ctx context.Context, elem ...string) m.Path {
	return mf.Called(ctx, elem).Get(0).(m.Path)
}

func (mf *mockSourceFS) WriteYAML(ctx context.Context, path m.Path, v any) error {
	return mf.Called(ctx, path, v).Error(0)
}
