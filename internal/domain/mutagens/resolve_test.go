package mutagens

import (
	"math/rand"
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const resolveSource = `class Hot {
    int x;

    void a() {
        x = 1;
    }

    void b() {
        x = 2;
    }
}

class Other {
    int y;

    void c() {
        y = 3;
    }
}
`

func printed[T jast.Node](nodes []T) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = jast.String(n)
	}

	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		hotClass  string
		hotMethod string
		rng       *rand.Rand
		want      []string
	}{
		{"hot method first", "Hot", "b", focusedDraws(), []string{"x = 2;"}},
		{"hot class when the method has none", "Hot", "missing", focusedDraws(), []string{"x = 1;", "x = 2;"}},
		{"whole unit when exploring", "Hot", "b", firstDraws(), []string{"x = 1;", "x = 2;", "y = 3;"}},
		{"random class stands in for a blank hot class", "", "b", focusedDraws(), []string{"x = 1;", "x = 2;"}},
		{"other class by name", "Other", "", focusedDraws(), []string{"y = 3;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := m.NewSeedTestCase("", tt.hotClass, tt.hotMethod)
			ctx := NewContext(parseUnit(t, resolveSource), tc, tt.rng)

			got := printed(Resolve(ctx, isStandaloneAssignment))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}

	t.Run("falls back to the unit when the hot class has no match", func(t *testing.T) {
		src := "class Hot {\n    void a() {\n    }\n}\n\nclass Other {\n    int y;\n\n    void c() {\n        y = 3;\n    }\n}\n"
		ctx := newContext(t, src, "Hot", "a", focusedDraws())

		got := printed(Resolve(ctx, isStandaloneAssignment))
		if len(got) != 1 || got[0] != "y = 3;" {
			t.Fatalf("expected the assignment in Other, got %v", got)
		}
	})
}

func TestExists(t *testing.T) {
	counter := &countingSource{src: rand.NewSource(1)}
	ctx := newContext(t, resolveSource, "Hot", "b", rand.New(counter))

	if !Exists(ctx, isStandaloneAssignment) {
		t.Fatalf("expected a standalone assignment")
	}

	if Exists(ctx, func(*jast.SyncStmt) bool { return true }) {
		t.Fatalf("expected no synchronized block")
	}

	if counter.draws != 0 {
		t.Fatalf("Exists drew %d random numbers", counter.draws)
	}
}
