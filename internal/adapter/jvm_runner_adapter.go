package adapter

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// JVMRunnerAdapter abstracts compiling and running Java test cases.
type JVMRunnerAdapter interface {
	// Compile runs javac on source, writing classes into classDir. A non-zero
	// exit code is reported in the execution, not as an error.
	Compile(ctx context.Context, classDir, source m.Path) (m.Execution, error)

	// Run starts mainClass from classDir with the given JVM flags. Errors are
	// returned only when the process could not be started.
	Run(ctx context.Context, classDir m.Path, mainClass string, flags []string) (m.Execution, error)
}

const (
	defaultJavaBinary     = "java"
	defaultJavacBinary    = "javac"
	defaultRunTimeout     = 15 * time.Second
	defaultCompileTimeout = 30 * time.Second
	processWaitDelay      = 2 * time.Second
)

// InterpreterFlags run a test case without any JIT compilation.
var InterpreterFlags = []string{"-Xint"}

// DefaultJITFlags force synchronous C2 compilation and turn on the
// optimization trace parsed by ParseOptimizationVectors.
var DefaultJITFlags = []string{
	"-Xbatch",
	"-XX:+DisplayVMOutputToStderr",
	"-XX:-DisplayVMOutputToStdout",
	"-XX:-UsePerfData",
	"-XX:-LogVMOutput",
	"-XX:-TieredCompilation",
	"-XX:+UnlockDiagnosticVMOptions",
	"-XX:+TraceC2Optimizations",
}

// CompileOnlyFlag restricts compilation to every method of the given binary
// class names ("pkg.Outer$Inner" becomes "pkg/Outer$Inner::*").
func CompileOnlyFlag(classNames []string) string {
	patterns := make([]string, 0, len(classNames))
	for _, name := range classNames {
		patterns = append(patterns, strings.ReplaceAll(name, ".", "/")+"::*")
	}

	return "-XX:CompileOnly=" + strings.Join(patterns, ",")
}

// LocalJVMRunnerAdapter provides a concrete implementation using os/exec.
type LocalJVMRunnerAdapter struct {
	java    string
	javac   string
	timeout time.Duration
}

// NewLocalJVMRunnerAdapter constructs a LocalJVMRunnerAdapter. Blank binaries
// fall back to java and javac on PATH, a zero timeout to 15s.
func NewLocalJVMRunnerAdapter(java, javac string, timeout time.Duration) *LocalJVMRunnerAdapter {
	if strings.TrimSpace(java) == "" {
		java = defaultJavaBinary
	}

	if strings.TrimSpace(javac) == "" {
		javac = defaultJavacBinary
	}

	if timeout <= 0 {
		timeout = defaultRunTimeout
	}

	return &LocalJVMRunnerAdapter{java: java, javac: javac, timeout: timeout}
}

// Compile runs javac -d classDir source.
func (a *LocalJVMRunnerAdapter) Compile(ctx context.Context, classDir, source m.Path) (m.Execution, error) {
	return a.execute(ctx, max(a.timeout, defaultCompileTimeout), a.javac, "-d", string(classDir), string(source))
}

// Run runs java flags... -cp classDir mainClass.
func (a *LocalJVMRunnerAdapter) Run(ctx context.Context, classDir m.Path, mainClass string, flags []string) (m.Execution, error) {
	args := make([]string, 0, len(flags)+3)
	args = append(args, flags...)
	args = append(args, "-cp", string(classDir), mainClass)

	return a.execute(ctx, a.timeout, a.java, args...)
}

func (a *LocalJVMRunnerAdapter) execute(parent context.Context, timeout time.Duration, name string, args ...string) (m.Execution, error) {
	if err := parent.Err(); err != nil {
		return m.Execution{}, err
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = processWaitDelay

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := m.Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if parent.Err() != nil {
		return result, parent.Err()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1

		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, err
}
