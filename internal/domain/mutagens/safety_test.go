package mutagens

import (
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const safetySource = `class Hot {
    static int counter;

    static void callee() {
        counter = counter + 1;
    }

    static void caller(int n) {
        for (int i = 0; i < n; i++) {
            for (int j = 0; j < n; j++) {
                callee();
            }
        }
    }

    static void deep(int n) {
        int s = 0;
        for (int i = 0; i < n; i++) {
            while (s < n) {
                do {
                    s = s + 1;
                } while (s < i);
            }
        }
    }

    static void recurse(int n) {
        n = n - 1;
        recurse(n);
    }
}
`

func TestLoopDepth(t *testing.T) {
	unit := parseUnit(t, safetySource)

	if d := LoopDepth(stmtNamed(t, unit, "s = s + 1;")); d != 3 {
		t.Fatalf("expected depth 3, got %d", d)
	}

	if d := LoopDepth(stmtNamed(t, unit, "counter = counter + 1;")); d != 0 {
		t.Fatalf("expected depth 0, got %d", d)
	}
}

func TestSafeToAddLoops(t *testing.T) {
	unit := parseUnit(t, safetySource)
	before := jast.String(unit)

	deep := stmtNamed(t, unit, "s = s + 1;")
	callee := stmtNamed(t, unit, "counter = counter + 1;")
	recursive := stmtNamed(t, unit, "n = n - 1;")

	tests := []struct {
		name   string
		anchor jast.Node
		loops  int
		want   bool
	}{
		{"at the budget", deep, 0, true},
		{"over the budget", deep, 1, false},
		{"call site within the budget", callee, 1, true},
		{"call site over the budget", callee, 2, false},
		{"recursive method", recursive, 3, true},
		{"nil anchor without loops", nil, 0, true},
		{"nil anchor with loops", nil, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeToAddLoops(tt.anchor, tt.loops); got != tt.want {
				t.Fatalf("SafeToAddLoops = %v, want %v", got, tt.want)
			}
		})
	}

	if after := jast.String(unit); after != before {
		t.Fatalf("oracle changed the tree")
	}
}

func TestContextSafeToAddLoops(t *testing.T) {
	ctx := NewContext(parseUnit(t, safetySource), nil, nil)
	anchor := stmtNamed(t, ctx.Model(), "counter = counter + 1;")

	if !ctx.SafeToAddLoops(anchor, 1) || ctx.SafeToAddLoops(anchor, 2) {
		t.Fatalf("context must delegate to the oracle")
	}
}
