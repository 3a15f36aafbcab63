package adapter

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	hsErrFileName      = "hs_err_pid%p.log"
	maxTopFrames       = 5
	bugBucketPrefix    = "b_"
	bugBucketHexDigits = 12
)

var (
	hsErrPathPattern   = regexp.MustCompile(`(\S*hs_err_pid\d+\.log)`)
	signalPattern      = regexp.MustCompile(`(?i)^#\s+(SIG\w+)\b`)
	problematicPattern = regexp.MustCompile(`(?i)^#\s*Problematic frame:`)
	hexPattern         = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	// Mutant class names carry an 8 hex digit id after the seed name.
	mutantIDPattern = regexp.MustCompile(`_[0-9a-f]{8}\b`)
	// "C2:   1234   56 %  4   demo.Hot::run" loses its timestamp and compile id.
	compileTaskPattern = regexp.MustCompile(`^(C[12]):\s+\d+\s+\d+\s+`)
	// "J 56 c2 demo.Hot.run(I)I" loses its compile id.
	compiledFramePattern = regexp.MustCompile(`^J \d+ `)
)

// ErrorFileFlag makes the JVM write its fatal error log into dir.
func ErrorFileFlag(dir m.Path) string {
	return "-XX:ErrorFile=" + strings.TrimRight(string(dir), "/") + "/" + hsErrFileName
}

// FindHsErrPath returns the first fatal error log path mentioned in the
// output of a JVM run, or "".
func FindHsErrPath(output string) string {
	match := hsErrPathPattern.FindStringSubmatch(output)
	if match == nil {
		return ""
	}

	return match[1]
}

// ParseHsErr extracts the signal, the problematic frame, the compile task and
// the top native frames of a HotSpot fatal error log. Missing sections are
// left blank.
func ParseHsErr(r io.Reader) (m.CrashReport, error) {
	var (
		report          m.CrashReport
		takeProblematic bool
		takeCompileTask bool
		inFrames        bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()

		if report.Signal == "" {
			if match := signalPattern.FindStringSubmatch(line); match != nil {
				report.Signal = strings.ToUpper(match[1])
			}
		}

		switch {
		case problematicPattern.MatchString(line):
			takeProblematic = true

		case takeProblematic:
			takeProblematic = false

			if frame := normalizeFrame(strings.TrimPrefix(line, "#")); frame != "" {
				report.ProblematicFrame = frame
			}

		case strings.HasPrefix(line, "Current CompileTask:"):
			takeCompileTask = true

		case takeCompileTask:
			if task := strings.TrimSpace(line); task != "" {
				report.CompileTask = normalizeCompileTask(task)
				takeCompileTask = false
			}

		case strings.HasPrefix(line, "Native frames:"):
			inFrames = true

		case inFrames:
			frame := normalizeFrame(line)
			if frame == "" {
				inFrames = len(report.TopFrames) == 0
				continue
			}

			report.TopFrames = append(report.TopFrames, frame)
			inFrames = len(report.TopFrames) < maxTopFrames
		}
	}

	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("failed to read fatal error log: %w", err)
	}

	return report, nil
}

// BucketizeBug builds the signature of a bug. Crashes are told apart by what
// their fatal error log says; without one the seed stands in, so plain
// output mismatches of different seeds stay apart.
func BucketizeBug(reason string, interp, jit m.Execution, crash *m.CrashReport, mutator, seed string) m.BugSignature {
	sig := m.BugSignature{
		Reason:          reason,
		InterpreterExit: interp.ExitCode,
		JITExit:         jit.ExitCode,
		Mutator:         mutator,
	}

	if crash != nil {
		sig.Signal = crash.Signal
		sig.ProblematicFrame = crash.ProblematicFrame
		sig.CompileTask = crash.CompileTask
		sig.TopFrames = crash.TopFrames
		sig.ErrorFile = crash.Path
	}

	if sig.Signal == "" && sig.ProblematicFrame == "" {
		sig.Seed = seed
	}

	sig.Canonical = canonicalSignature(sig)

	sum := sha256.Sum256([]byte(sig.Canonical))
	sig.Bucket = bugBucketPrefix + hex.EncodeToString(sum[:])[:bugBucketHexDigits]

	return sig
}

func canonicalSignature(sig m.BugSignature) string {
	var b strings.Builder

	line := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(value))
		b.WriteByte('\n')
	}

	line("reason", sig.Reason)
	line("signal", sig.Signal)
	line("problematic_frame", sig.ProblematicFrame)
	line("compile_task", sig.CompileTask)

	if len(sig.TopFrames) > 0 {
		line("top_frames", strings.Join(sig.TopFrames, "|"))
	}

	line("int_exit", strconv.Itoa(sig.InterpreterExit))
	line("jit_exit", strconv.Itoa(sig.JITExit))
	line("mutation", sig.Mutator)
	line("seed", sig.Seed)

	return b.String()
}

func normalizeFrame(line string) string {
	frame := strings.Join(strings.Fields(line), " ")
	frame = hexPattern.ReplaceAllString(frame, "0x")
	frame = compiledFramePattern.ReplaceAllString(frame, "J ")

	return mutantIDPattern.ReplaceAllString(frame, "")
}

func normalizeCompileTask(task string) string {
	task = compileTaskPattern.ReplaceAllString(strings.Join(strings.Fields(task), " "), "$1: ")

	return mutantIDPattern.ReplaceAllString(task, "")
}
