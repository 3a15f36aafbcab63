package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const jitTrace = `OPTS_START
Opts|demo.Hot|run|(I)I|non-OSR||12
Loop Unrolling=2
Function Inlining=1
OPTS_END
`

func newTestOrchestrator(runner adapter.JVMRunnerAdapter) Orchestrator {
	return NewOrchestrator(adapter.NewLocalSourceFSAdapter(), adapter.NewLocalJavaFileAdapter(), runner, nil)
}

func isJITRun(flags []string) bool {
	return slices.Contains(flags, "-XX:CompileOnly=demo/Hot::*")
}

func isInterpreterRun(flags []string) bool {
	return slices.Equal(flags, adapter.InterpreterFlags)
}

func TestOrchestrator_Execute(t *testing.T) {
	runner := &mockJVMRunner{}

	var classDir m.Path

	runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			classDir = args.Get(1).(m.Path)
			source := args.Get(2).(m.Path)

			assert.Equal(t, "Hot.java", filepath.Base(string(source)))

			content, err := os.ReadFile(string(source))
			assert.NoError(t, err)
			assert.Equal(t, hotSource, string(content))
		}).
		Return(m.Execution{}, nil)
	runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isInterpreterRun)).
		Return(m.Execution{Stdout: "4950\n", Duration: 40 * time.Millisecond}, nil)
	runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isJITRun)).
		Return(m.Execution{Stdout: "4950\n", Stderr: jitTrace, Duration: 90 * time.Millisecond}, nil)

	tc := hotSeed()

	result, err := newTestOrchestrator(runner).Execute(context.Background(), tc, []byte(hotSource))
	require.NoError(t, err)

	assert.False(t, result.CompileFailed)
	assert.False(t, result.TimedOut())
	assert.Equal(t, "4950\n", result.Interpreter.Stdout)

	require.NotNil(t, result.Vectors)
	assert.Equal(t, 2, result.Vectors.Merged.Get(m.FeatureLoopUnrolling))
	assert.Equal(t, 1, result.Vectors.Merged.Get(m.FeatureFunctionInlining))

	assert.Equal(t, 40*time.Millisecond, tc.InterpreterRuntime)
	assert.Equal(t, 90*time.Millisecond, tc.JITRuntime)

	require.NotEmpty(t, classDir)
	_, err = os.Stat(filepath.Dir(string(classDir)))
	assert.True(t, os.IsNotExist(err), "workspace should be removed")

	runner.AssertExpectations(t)
}

func TestOrchestrator_ExecuteEdgeCases(t *testing.T) {
	t.Run("compile failure skips both runs", func(t *testing.T) {
		runner := &mockJVMRunner{}
		runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).
			Return(m.Execution{ExitCode: 1, Stderr: "error: cannot find symbol"}, nil)

		result, err := newTestOrchestrator(runner).Execute(context.Background(), hotSeed(), []byte(hotSource))
		require.NoError(t, err)

		assert.True(t, result.CompileFailed)
		assert.Nil(t, result.Vectors)
		runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("JIT timeout leaves vectors empty", func(t *testing.T) {
		runner := &mockJVMRunner{}
		runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).Return(m.Execution{}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isInterpreterRun)).
			Return(m.Execution{Stdout: "4950\n"}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isJITRun)).
			Return(m.Execution{ExitCode: -1, TimedOut: true, Stderr: jitTrace}, nil)

		result, err := newTestOrchestrator(runner).Execute(context.Background(), hotSeed(), []byte(hotSource))
		require.NoError(t, err)

		assert.True(t, result.TimedOut())
		assert.Nil(t, result.Vectors)
	})

	t.Run("JIT crash collects the fatal error log", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "hs_err_pid4242.log")
		crashLog := "#  SIGSEGV (0xb) at pc=0x00007f3a1c8b2c3d, pid=4242, tid=4257\n" +
			"# Problematic frame:\n# V  [libjvm.so+0x8b2c3d]  PhaseIdealLoop::build_loop_late_post_work(Node*, bool)+0x10d\n"
		require.NoError(t, os.WriteFile(logPath, []byte(crashLog), 0o600))

		writesErrorFile := func(flags []string) bool {
			return isJITRun(flags) && slices.ContainsFunc(flags, func(f string) bool {
				return strings.HasPrefix(f, "-XX:ErrorFile=") && strings.HasSuffix(f, "/hs_err_pid%p.log")
			})
		}

		runner := &mockJVMRunner{}
		runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).Return(m.Execution{}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isInterpreterRun)).
			Return(m.Execution{Stdout: "4950\n"}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(writesErrorFile)).
			Return(m.Execution{ExitCode: 134, Stdout: "# An error report file with more information is saved as:\n# " + logPath + "\n"}, nil)

		result, err := newTestOrchestrator(runner).Execute(context.Background(), hotSeed(), []byte(hotSource))
		require.NoError(t, err)

		require.NotNil(t, result.Crash)
		assert.Equal(t, logPath, result.Crash.Path)
		assert.Equal(t, "SIGSEGV", result.Crash.Signal)
		assert.Equal(t, "V [libjvm.so+0x] PhaseIdealLoop::build_loop_late_post_work(Node*, bool)+0x", result.Crash.ProblematicFrame)
		assert.Equal(t, crashLog, string(result.CrashLog))
		runner.AssertExpectations(t)
	})

	t.Run("missing fatal error log is ignored", func(t *testing.T) {
		runner := &mockJVMRunner{}
		runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).Return(m.Execution{}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isInterpreterRun)).
			Return(m.Execution{}, nil)
		runner.On("Run", mock.Anything, mock.Anything, "demo.Hot", mock.MatchedBy(isJITRun)).
			Return(m.Execution{ExitCode: 134, Stderr: "# /nonexistent/hs_err_pid1.log\n"}, nil)

		result, err := newTestOrchestrator(runner).Execute(context.Background(), hotSeed(), []byte(hotSource))
		require.NoError(t, err)
		assert.Nil(t, result.Crash)
	})

	t.Run("runner error", func(t *testing.T) {
		runner := &mockJVMRunner{}
		runner.On("Compile", mock.Anything, mock.Anything, mock.Anything).Return(m.Execution{}, errors.New("javac: not found"))

		_, err := newTestOrchestrator(runner).Execute(context.Background(), hotSeed(), []byte(hotSource))
		assert.ErrorContains(t, err, "javac: not found")
	})

	t.Run("test case without its class", func(t *testing.T) {
		runner := &mockJVMRunner{}
		tc := m.NewSeedTestCase("Missing", "", "")

		_, err := newTestOrchestrator(runner).Execute(context.Background(), tc, []byte(hotSource))
		assert.Error(t, err)
		runner.AssertNotCalled(t, "Compile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestOrchestrator(&mockJVMRunner{}).Execute(ctx, hotSeed(), []byte(hotSource))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
