package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// RunResult holds the executions of one test case.
type RunResult struct {
	TestCase      *m.TestCase
	Compile       m.Execution
	CompileFailed bool
	Interpreter   m.Execution
	JIT           m.Execution
	// Vectors is parsed from the JIT run's stderr. It is nil when the test
	// case did not compile or the JIT run timed out.
	Vectors *m.OptimizationVectors
	// Crash is set when the JIT run left a fatal error log. CrashLog holds
	// its content, since the workspace is removed after the run.
	Crash    *m.CrashReport
	CrashLog []byte
}

// TimedOut reports whether either run hit the time limit.
func (r RunResult) TimedOut() bool {
	return r.Interpreter.TimedOut || r.JIT.TimedOut
}

// Orchestrator compiles a test case in a temporary workspace and runs it once
// in the interpreter and once under C2.
type Orchestrator interface {
	Execute(ctx context.Context, tc *m.TestCase, source []byte) (RunResult, error)
}

type orchestrator struct {
	fsAdapter   adapter.SourceFSAdapter
	javaAdapter adapter.JavaFileAdapter
	jvmAdapter  adapter.JVMRunnerAdapter
	jitFlags    []string
}

// NewOrchestrator constructs an Orchestrator. Empty jitFlags fall back to
// adapter.DefaultJITFlags; a CompileOnly filter for the test case's classes
// is always appended.
func NewOrchestrator(fsAdapter adapter.SourceFSAdapter, javaAdapter adapter.JavaFileAdapter, jvmAdapter adapter.JVMRunnerAdapter, jitFlags []string) Orchestrator {
	if len(jitFlags) == 0 {
		jitFlags = adapter.DefaultJITFlags
	}

	return &orchestrator{
		fsAdapter:   fsAdapter,
		javaAdapter: javaAdapter,
		jvmAdapter:  jvmAdapter,
		jitFlags:    jitFlags,
	}
}

func (o *orchestrator) Execute(ctx context.Context, tc *m.TestCase, source []byte) (RunResult, error) {
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	if tc == nil {
		return RunResult{}, fmt.Errorf("test case is nil")
	}

	classNames, mainClass, err := o.resolveClasses(ctx, tc, source)
	if err != nil {
		return RunResult{}, err
	}

	tmpDir, err := o.prepareWorkspace(ctx, tc)
	if tmpDir != "" {
		defer o.cleanupTempDir(ctx, tmpDir)
	}

	if err != nil {
		return RunResult{}, err
	}

	sourcePath := o.fsAdapter.JoinPath(ctx, string(tmpDir), tc.Name+".java")
	classDir := o.fsAdapter.JoinPath(ctx, string(tmpDir), "classes")

	if err := o.fsAdapter.WriteFile(ctx, sourcePath, source, 0o600); err != nil {
		slog.Error("Failed to write test case", "path", sourcePath, "error", err)
		return RunResult{}, fmt.Errorf("failed to write test case: %w", err)
	}

	if err := o.fsAdapter.MkdirAll(ctx, classDir); err != nil {
		return RunResult{}, fmt.Errorf("failed to create class dir: %w", err)
	}

	result := RunResult{TestCase: tc}

	result.Compile, err = o.jvmAdapter.Compile(ctx, classDir, sourcePath)
	if err != nil {
		return result, fmt.Errorf("failed to compile %s: %w", tc.Name, err)
	}

	if result.Compile.ExitCode != 0 || result.Compile.TimedOut {
		slog.Warn("Test case does not compile", "testCase", tc.Name, "exitCode", result.Compile.ExitCode)

		result.CompileFailed = true

		return result, nil
	}

	result.Interpreter, err = o.jvmAdapter.Run(ctx, classDir, mainClass, adapter.InterpreterFlags)
	if err != nil {
		return result, fmt.Errorf("failed to run %s in the interpreter: %w", tc.Name, err)
	}

	flags := append(append([]string(nil), o.jitFlags...), adapter.ErrorFileFlag(tmpDir), adapter.CompileOnlyFlag(classNames))

	result.JIT, err = o.jvmAdapter.Run(ctx, classDir, mainClass, flags)
	if err != nil {
		return result, fmt.Errorf("failed to run %s with C2: %w", tc.Name, err)
	}

	tc.InterpreterRuntime = result.Interpreter.Duration
	tc.JITRuntime = result.JIT.Duration

	if !result.JIT.TimedOut {
		result.Vectors = adapter.ParseOptimizationVectors(result.JIT.Stderr)
	}

	o.collectCrash(ctx, &result)

	slog.Debug("Executed test case", "testCase", tc.Name,
		"interpreterExit", result.Interpreter.ExitCode, "jitExit", result.JIT.ExitCode,
		"interpreter", result.Interpreter.Duration, "jit", result.JIT.Duration)

	return result, nil
}

// collectCrash reads the fatal error log the JIT run points at, if any.
func (o *orchestrator) collectCrash(ctx context.Context, result *RunResult) {
	path := adapter.FindHsErrPath(result.JIT.Stdout + "\n" + result.JIT.Stderr)
	if path == "" {
		return
	}

	content, err := o.fsAdapter.ReadFile(ctx, m.Path(path))
	if err != nil {
		slog.Warn("Fatal error log referenced but not readable", "testCase", result.TestCase.Name, "path", path, "error", err)
		return
	}

	crash, err := adapter.ParseHsErr(bytes.NewReader(content))
	if err != nil {
		slog.Warn("Failed to parse fatal error log", "testCase", result.TestCase.Name, "path", path, "error", err)
	}

	crash.Path = path
	result.Crash = &crash
	result.CrashLog = content

	slog.Debug("Collected fatal error log", "testCase", result.TestCase.Name, "signal", crash.Signal, "frame", crash.ProblematicFrame)
}

// resolveClasses returns the binary names of every class in source and the
// one of the class named after the test case, which holds main.
func (o *orchestrator) resolveClasses(ctx context.Context, tc *m.TestCase, source []byte) ([]string, string, error) {
	unit, err := o.javaAdapter.Parse(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", tc.Name, err)
	}

	classNames := o.javaAdapter.ClassNames(ctx, unit)

	for _, name := range classNames {
		if name == tc.Name || strings.HasSuffix(name, "."+tc.Name) {
			return classNames, name, nil
		}
	}

	return nil, "", fmt.Errorf("test case %s declares no class %s", tc.Name, tc.Name)
}

func (o *orchestrator) prepareWorkspace(ctx context.Context, tc *m.TestCase) (m.Path, error) {
	tmpDir, err := o.fsAdapter.CreateTempDir(ctx, "jitfuzz-"+tc.Name+"-*")
	if err != nil {
		slog.Error("Failed to create temp dir", "testCase", tc.Name, "error", err)
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	return tmpDir, nil
}

// cleanupTempDir removes the temporary directory, logging errors if cleanup fails.
func (o *orchestrator) cleanupTempDir(ctx context.Context, tmpDir m.Path) {
	if err := o.fsAdapter.RemoveAll(ctx, tmpDir); err != nil {
		slog.Error("Failed to cleanup temp dir", "tmpDir", tmpDir, "error", err)
	}
}
