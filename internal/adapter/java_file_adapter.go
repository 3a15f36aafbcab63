// Package adapter contains the infrastructure adapters the fuzzer domain
// delegates to: Java parsing, the file system, the JVM and the session store.
package adapter

import (
	"context"
	"fmt"
	"regexp"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// JavaFileAdapter encapsulates Java parsing and printing so the domain layer
// can focus on mutation rules.
type JavaFileAdapter interface {
	// Parse builds a syntax tree from Java source.
	Parse(ctx context.Context, src []byte) (*jast.CompilationUnit, error)

	// Print renders a syntax tree back to Java source.
	Print(ctx context.Context, unit *jast.CompilationUnit) ([]byte, error)

	// Program parses src and derives the program metadata: the public class
	// name and the optional hot method directive.
	Program(ctx context.Context, origin *m.File, src []byte) (m.Program, error)

	// RenameClass renames the class from, its constructors and every
	// reference to it.
	RenameClass(ctx context.Context, unit *jast.CompilationUnit, from, to string) error

	// ClassNames lists the binary names of every class declared in the unit.
	ClassNames(ctx context.Context, unit *jast.CompilationUnit) []string
}

// hotDirective matches "// jitfuzz:hot Class#method" and "// jitfuzz:hot Class".
var hotDirective = regexp.MustCompile(`//\s*jitfuzz:hot\s+([\w.$]+)(?:#(\w+))?`)

// LocalJavaFileAdapter provides a concrete JavaFileAdapter backed by jast.
type LocalJavaFileAdapter struct{}

// NewLocalJavaFileAdapter constructs a LocalJavaFileAdapter.
func NewLocalJavaFileAdapter() *LocalJavaFileAdapter {
	return &LocalJavaFileAdapter{}
}

// Parse builds a syntax tree for the provided source.
func (a *LocalJavaFileAdapter) Parse(ctx context.Context, src []byte) (*jast.CompilationUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return jast.Parse(src)
}

// Print renders the unit.
func (a *LocalJavaFileAdapter) Print(ctx context.Context, unit *jast.CompilationUnit) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if unit == nil {
		return nil, fmt.Errorf("compilation unit is nil")
	}

	return []byte(jast.String(unit)), nil
}

// Program parses src and extracts the metadata of a seed program.
func (a *LocalJavaFileAdapter) Program(ctx context.Context, origin *m.File, src []byte) (m.Program, error) {
	unit, err := a.Parse(ctx, src)
	if err != nil {
		return m.Program{}, err
	}

	name := mainClass(unit)
	if name == "" {
		return m.Program{}, fmt.Errorf("no top-level class declared")
	}

	program := m.Program{Origin: origin, Name: name, Source: src}

	if match := hotDirective.FindSubmatch(src); match != nil {
		program.HotClass = string(match[1])
		program.HotMethod = string(match[2])
	}

	return program, nil
}

// RenameClass renames from to to throughout the unit.
func (a *LocalJavaFileAdapter) RenameClass(_ context.Context, unit *jast.CompilationUnit, from, to string) error {
	if !jast.RenameClass(unit, from, to) {
		return fmt.Errorf("class %q not declared", from)
	}

	return nil
}

// ClassNames returns the binary names ("pkg.Outer$Inner") of every declared class.
func (a *LocalJavaFileAdapter) ClassNames(_ context.Context, unit *jast.CompilationUnit) []string {
	var names []string

	for _, c := range jast.Classes(unit) {
		names = append(names, jast.QualifiedName(c))
	}

	return names
}

// mainClass picks the public top-level class, falling back to the first
// top-level type.
func mainClass(unit *jast.CompilationUnit) string {
	for _, c := range unit.Types {
		if c.Mods.Has(jast.ModPublic) {
			return c.Name
		}
	}

	if len(unit.Types) > 0 {
		return unit.Types[0].Name
	}

	return ""
}
