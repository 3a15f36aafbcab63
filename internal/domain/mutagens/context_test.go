package mutagens

import (
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const nestedSource = `package demo;

class Outer {
    Outer() {
    }

    void hot() {
    }

    static class Inner {
        void hot() {
            int tmp0 = 1;
        }
    }
}
`

func TestContextTarget(t *testing.T) {
	tests := []struct {
		name      string
		testName  string
		hotClass  string
		hotMethod string
		class     string
		method    bool
	}{
		{name: "binary name", hotClass: "demo.Outer$Inner", hotMethod: "hot", class: "Inner", method: true},
		{name: "simple name", hotClass: "Inner", hotMethod: "hot", class: "Inner", method: true},
		{name: "prefixed simple name", hotClass: "other.Outer", hotMethod: "hot", class: "Outer", method: true},
		{name: "test case name", testName: "Outer", hotClass: "missing.Nope", class: "Outer"},
		{name: "unknown method", hotClass: "Outer", hotMethod: "cold", class: "Outer"},
		{name: "constructor is not a method", hotClass: "Outer", hotMethod: "Outer", class: "Outer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := m.NewSeedTestCase(tt.testName, tt.hotClass, tt.hotMethod)
			ctx := NewContext(parseUnit(t, nestedSource), tc, firstDraws())

			cls := ctx.TargetClass()
			if cls == nil || cls.Name != tt.class {
				t.Fatalf("expected class %s, got %v", tt.class, cls)
			}

			md := ctx.TargetMethod()
			if tt.method {
				if md == nil || md.Name != tt.hotMethod || jast.EnclosingClass(md) != cls {
					t.Fatalf("expected method %s of %s, got %v", tt.hotMethod, tt.class, md)
				}
			} else if md != nil {
				t.Fatalf("expected no method, got %s", md.Name)
			}
		})
	}

	t.Run("blank hot class resolves nothing", func(t *testing.T) {
		tc := m.NewSeedTestCase("Outer", "", "hot")
		ctx := NewContext(parseUnit(t, nestedSource), tc, nil)

		if ctx.TargetClass() != nil || ctx.TargetMethod() != nil {
			t.Fatalf("expected no target for a blank hot class")
		}
	})
}

func TestContextDefaults(t *testing.T) {
	t.Run("nil test case is a seed", func(t *testing.T) {
		ctx := NewContext(parseUnit(t, nestedSource), nil, nil)

		if ctx.Launcher() != m.Seed || ctx.TestCase() == nil || ctx.Rand() == nil {
			t.Fatalf("expected seed defaults, got launcher %v", ctx.Launcher())
		}
	})

	t.Run("launcher option overrides the test case", func(t *testing.T) {
		tc := m.NewSeedTestCase("Outer", "Outer", "")
		ctx := NewContext(parseUnit(t, nestedSource), tc, nil, WithLauncher(m.LockCoarsening))

		if ctx.Launcher() != m.LockCoarsening {
			t.Fatalf("expected LOCK_COARSENING, got %v", ctx.Launcher())
		}
	})
}

func TestFreshName(t *testing.T) {
	ctx := NewContext(parseUnit(t, nestedSource), nil, nil)

	got := []string{ctx.FreshName("tmp"), ctx.FreshName("tmp"), ctx.FreshName("other")}
	want := []string{"tmp1", "tmp2", "other3"}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %s, want %s", i, got[i], want[i])
		}
	}
}
