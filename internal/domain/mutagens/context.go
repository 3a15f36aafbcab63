// Package mutagens holds the mutation strategies. Each strategy rewrites a
// parsed compilation unit in place to provoke a specific C2 optimization.
package mutagens

import (
	"errors"
	"math/rand"
	"strconv"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// ErrNilContext is returned by strategies invoked without a context.
var ErrNilContext = errors.New("mutation context is nil")

// Context carries everything a strategy needs for one mutation attempt. It is
// owned by a single goroutine.
type Context struct {
	unit     *jast.CompilationUnit
	tc       *m.TestCase
	rng      *rand.Rand
	launcher m.MutatorType

	resolved     bool
	targetClass  *jast.ClassDecl
	targetMethod *jast.MethodDecl

	counter  int
	declared map[string]bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLauncher records which mutator the results are attributed to.
func WithLauncher(t m.MutatorType) ContextOption {
	return func(c *Context) { c.launcher = t }
}

// NewContext builds a context for mutating unit on behalf of tc. A nil rng is
// replaced by one seeded with 0.
func NewContext(unit *jast.CompilationUnit, tc *m.TestCase, rng *rand.Rand, opts ...ContextOption) *Context {
	if rng == nil {
		rng = rand.New(rand.NewSource(0)) //nolint:gosec // fuzzing randomness
	}

	if tc == nil {
		tc = &m.TestCase{Mutation: m.Seed}
	}

	c := &Context{unit: unit, tc: tc, rng: rng, launcher: tc.Mutation}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Model returns the compilation unit being mutated.
func (c *Context) Model() *jast.CompilationUnit { return c.unit }

// Rand returns the shared random source.
func (c *Context) Rand() *rand.Rand { return c.rng }

// TestCase returns the test case being mutated.
func (c *Context) TestCase() *m.TestCase { return c.tc }

// Launcher returns the mutator results are attributed to.
func (c *Context) Launcher() m.MutatorType { return c.launcher }

// TargetClass resolves the hot class of the test case. The lookup tries the
// qualified name, the simple name, then the test case name. It returns nil
// when the test case names no hot class or nothing matches.
func (c *Context) TargetClass() *jast.ClassDecl {
	c.resolve()
	return c.targetClass
}

// TargetMethod returns the first method of the target class named like the
// hot method.
func (c *Context) TargetMethod() *jast.MethodDecl {
	c.resolve()
	return c.targetMethod
}

func (c *Context) resolve() {
	if c.resolved {
		return
	}

	c.resolved = true

	if c.unit == nil || c.tc.HotClass == "" {
		return
	}

	for _, name := range []string{c.tc.HotClass, jast.SimpleName(c.tc.HotClass), c.tc.Name, jast.SimpleName(c.tc.Name)} {
		if cls := c.classNamed(name); cls != nil {
			c.targetClass = cls
			break
		}
	}

	if c.targetClass == nil || c.tc.HotMethod == "" {
		return
	}

	for _, mem := range c.targetClass.Members {
		if md, ok := mem.(*jast.MethodDecl); ok && !md.IsConstructor && md.Name == c.tc.HotMethod {
			c.targetMethod = md
			return
		}
	}
}

func (c *Context) classNamed(name string) *jast.ClassDecl {
	if name == "" {
		return nil
	}

	classes := jast.Classes(c.unit)

	for _, cls := range classes {
		if jast.QualifiedName(cls) == name {
			return cls
		}
	}

	for _, cls := range classes {
		if cls.Name == name {
			return cls
		}
	}

	return nil
}

// FreshName returns prefix followed by a counter value, skipping names already
// declared in the unit and names handed out before.
func (c *Context) FreshName(prefix string) string {
	if c.declared == nil {
		c.declared = map[string]bool{}
		if c.unit != nil {
			c.declared = jast.DeclaredNames(c.unit)
		}
	}

	for {
		name := prefix + strconv.Itoa(c.counter)
		c.counter++

		if !c.declared[name] {
			c.declared[name] = true
			return name
		}
	}
}

// SafeToAddLoops reports whether loopsToAdd loops can be wrapped around
// anchor without exceeding MaxLoopDepth.
func (c *Context) SafeToAddLoops(anchor jast.Node, loopsToAdd int) bool {
	return SafeToAddLoops(anchor, loopsToAdd)
}
