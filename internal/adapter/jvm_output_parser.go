package adapter

import (
	"bufio"
	"log/slog"
	"strconv"
	"strings"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	optsStart    = "OPTS_START"
	optsEnd      = "OPTS_END"
	headerPrefix = "Opts|"
	headerFields = 7
)

// ParseOptimizationVectors extracts the per-compilation optimization counts
// from the stderr of a JIT run. Output before the first OPTS_START marker is
// ignored. Each block looks like
//
//	OPTS_START
//	Opts|demo.Hot|run|(I)I|OSR|4|23
//	Loop Unrolling=2
//	OPTS_END
//
// where the header fields are class, method, signature, compilation type,
// entry bci (blank for standard compilations) and compile id. Malformed
// headers drop their block; malformed count lines are skipped.
func ParseOptimizationVectors(output string) *m.OptimizationVectors {
	idx := strings.Index(output, optsStart)
	if idx < 0 {
		return m.NewOptimizationVectors(nil)
	}

	var vectors []m.MethodOptimizationVector

	for _, segment := range strings.Split(output[idx:], optsStart) {
		lines := blockLines(segment)
		if len(lines) == 0 {
			continue
		}

		vector, ok := parseHeader(lines[0])
		if !ok {
			continue
		}

		for _, line := range lines[1:] {
			addCount(&vector.Vector, line)
		}

		vectors = append(vectors, vector)
	}

	return m.NewOptimizationVectors(vectors)
}

func blockLines(segment string) []string {
	var lines []string

	sc := bufio.NewScanner(strings.NewReader(segment))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if line == optsEnd {
			break
		}

		lines = append(lines, line)
	}

	return lines
}

func parseHeader(header string) (m.MethodOptimizationVector, bool) {
	if !strings.HasPrefix(header, headerPrefix) {
		slog.Warn("Malformed optimization block header", "header", header)
		return m.MethodOptimizationVector{}, false
	}

	parts := strings.Split(header, "|")
	if len(parts) < headerFields {
		slog.Warn("Truncated optimization block header", "header", header)
		return m.MethodOptimizationVector{}, false
	}

	entryBCI := -1

	if raw := strings.TrimSpace(parts[5]); raw != "" {
		bci, err := strconv.Atoi(raw)
		if err != nil {
			slog.Warn("Invalid entry bci in optimization header", "header", header, "error", err)
			return m.MethodOptimizationVector{}, false
		}

		entryBCI = bci
	}

	compileID, err := strconv.Atoi(strings.TrimSpace(parts[6]))
	if err != nil {
		slog.Warn("Invalid compile id in optimization header", "header", header, "error", err)
		return m.MethodOptimizationVector{}, false
	}

	return m.MethodOptimizationVector{
		ClassName:  strings.TrimSpace(parts[1]),
		MethodName: strings.TrimSpace(parts[2]),
		Signature:  strings.TrimSpace(parts[3]),
		OSR:        strings.TrimSpace(parts[4]) == "OSR",
		EntryBCI:   entryBCI,
		CompileID:  compileID,
	}, true
}

func addCount(v *m.OptimizationVector, line string) {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 || eq == len(line)-1 {
		return
	}

	feature, err := m.FeatureFromName(line[:eq])
	if err != nil {
		slog.Debug("Skipping unknown optimization feature", "line", line)
		return
	}

	n, err := strconv.Atoi(strings.TrimSpace(line[eq+1:]))
	if err != nil {
		slog.Error("Failed to parse optimization feature value", "line", line, "error", err)
		return
	}

	v.Add(feature, n)
}
