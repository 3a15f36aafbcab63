package adapter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// These tests stand in shell scripts for java and javac so they run on
// machines without a JDK.

func fakeBinary(t *testing.T, name, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script binaries need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), name)
	writeTestFile(t, path, "#!/bin/sh\n"+script+"\n")

	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}

	return path
}

func TestLocalJVMRunnerAdapter_Run(t *testing.T) {
	t.Run("passes flags, class path and main class", func(t *testing.T) {
		java := fakeBinary(t, "java", `echo "$@"; echo trace >&2`)
		adapter := NewLocalJVMRunnerAdapter(java, "", time.Second)

		exec, err := adapter.Run(context.Background(), "/tmp/classes", "Hot_1a2b", InterpreterFlags)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got := strings.TrimSpace(exec.Stdout); got != "-Xint -cp /tmp/classes Hot_1a2b" {
			t.Fatalf("Run() stdout = %q", got)
		}

		if strings.TrimSpace(exec.Stderr) != "trace" {
			t.Fatalf("Run() stderr = %q", exec.Stderr)
		}

		if exec.ExitCode != 0 || exec.TimedOut {
			t.Fatalf("Run() = %+v, want a clean exit", exec)
		}
	})

	t.Run("reports the exit code", func(t *testing.T) {
		java := fakeBinary(t, "java", "exit 3")
		adapter := NewLocalJVMRunnerAdapter(java, "", time.Second)

		exec, err := adapter.Run(context.Background(), ".", "Main", nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if exec.ExitCode != 3 {
			t.Fatalf("Run() exit code = %d, want 3", exec.ExitCode)
		}
	})

	t.Run("times out", func(t *testing.T) {
		java := fakeBinary(t, "java", "exec sleep 5")
		adapter := NewLocalJVMRunnerAdapter(java, "", 100*time.Millisecond)

		exec, err := adapter.Run(context.Background(), ".", "Main", nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if !exec.TimedOut || exec.ExitCode != -1 {
			t.Fatalf("Run() = %+v, want a timeout", exec)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		adapter := NewLocalJVMRunnerAdapter(filepath.Join(t.TempDir(), "no-java"), "", time.Second)

		if _, err := adapter.Run(context.Background(), ".", "Main", nil); err == nil {
			t.Fatalf("Run() expected error for a missing binary")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		java := fakeBinary(t, "java", "exit 0")
		adapter := NewLocalJVMRunnerAdapter(java, "", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := adapter.Run(ctx, ".", "Main", nil); err == nil {
			t.Fatalf("Run() expected error for a cancelled context")
		}
	})
}

func TestLocalJVMRunnerAdapter_Compile(t *testing.T) {
	javac := fakeBinary(t, "javac", `echo "$@"; exit 1`)
	adapter := NewLocalJVMRunnerAdapter("", javac, time.Second)

	exec, err := adapter.Compile(context.Background(), "/tmp/out", m.Path("/tmp/out/Hot.java"))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if got := strings.TrimSpace(exec.Stdout); got != "-d /tmp/out /tmp/out/Hot.java" {
		t.Fatalf("Compile() args = %q", got)
	}

	if exec.ExitCode != 1 {
		t.Fatalf("Compile() exit code = %d, want 1", exec.ExitCode)
	}
}

func TestCompileOnlyFlag(t *testing.T) {
	got := CompileOnlyFlag([]string{"demo.Hot", "demo.Hot$Inner", "Main"})

	if got != "-XX:CompileOnly=demo/Hot::*,demo/Hot$Inner::*,Main::*" {
		t.Fatalf("CompileOnlyFlag() = %q", got)
	}
}

func TestNewLocalJVMRunnerAdapter_Defaults(t *testing.T) {
	adapter := NewLocalJVMRunnerAdapter(" ", "", 0)

	if adapter.java != "java" || adapter.javac != "javac" || adapter.timeout != 15*time.Second {
		t.Fatalf("defaults = %+v", adapter)
	}
}
