package mutagens

import (
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const assignSource = `class Hot {
    static int compute(int n) {
        int acc = 0;
        acc = acc + n;
        return acc;
    }
}
`

const noAssignSource = `class Hot {
    static int compute(int n) {
        return n + 1;
    }
}
`

const nestedAssignSource = `class Hot {
    static int compute(int n) {
        int acc = 0;
        for (int i = 0; i < n; i++) {
            for (int j = 0; j < n; j++) {
                acc = acc + j;
            }
        }
        return acc;
    }
}
`

const deepAssignSource = `class Hot {
    static int compute(int n) {
        int acc = 0;
        for (int i = 0; i < n; i++) {
            for (int j = 0; j < n; j++) {
                for (int k = 0; k < n; k++) {
                    acc = acc + k;
                }
            }
        }
        return acc;
    }
}
`

func TestStatementWrappers(t *testing.T) {
	tests := []struct {
		name   string
		mut    Mutator
		copies int
		loops  int
	}{
		{"loop unrolling", NewLoopUnrolling(), 1, 1},
		{"loop peeling", NewLoopPeeling(), 2, 1},
		{"loop unswitching", NewLoopUnswitching(), 2, 2},
		{"deoptimization", NewDeoptimization(), 1, 1},
		{"late zero", NewLateZero(), 2, 2},
		{"dead code", NewDeadCode(), 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext(t, assignSource, "Hot", "compute", firstDraws())
			unit := mustMutate(t, tt.mut, ctx)

			if got := len(stmtsNamed(unit, "acc = acc + n;")); got != tt.copies {
				t.Errorf("expected %d copies of the statement, got %d", tt.copies, got)
			}

			if got := len(jast.Find[*jast.ForStmt](unit)); got != tt.loops {
				t.Errorf("expected %d loops, got %d", tt.loops, got)
			}

			if got := len(stmtsNamed(unit, "return acc;")); got != 1 {
				t.Errorf("expected the return to survive once, got %d", got)
			}
		})

		t.Run(tt.name+" skips without assignments", func(t *testing.T) {
			mustSkip(t, tt.mut, noAssignSource)
		})
	}
}

func TestLoopUnrollingRunsOnce(t *testing.T) {
	ctx := newContext(t, assignSource, "Hot", "compute", firstDraws())
	unit := mustMutate(t, NewLoopUnrolling(), ctx)

	stmt := stmtNamed(t, unit, "acc = acc + n;")

	guard, ok := jast.Enclosing[*jast.IfStmt](stmt)
	if !ok {
		t.Fatalf("expected the statement under an index guard")
	}

	// The first draw picks iteration 0.
	if got := jast.String(guard.Cond); got != "unrollIdx1 == 0" {
		t.Errorf("unexpected guard %q", got)
	}

	loop, ok := jast.Enclosing[*jast.ForStmt](guard)
	if !ok || jast.String(loop.Cond) != "unrollIdx1 < unrollLimit0" {
		t.Fatalf("expected the guard inside the unrolled loop")
	}
}

func TestLoopPeelingReplaysOnce(t *testing.T) {
	ctx := newContext(t, assignSource, "Hot", "compute", firstDraws())
	unit := mustMutate(t, NewLoopPeeling(), ctx)

	var inLoop, replay int

	for _, s := range stmtsNamed(unit, "acc = acc + n;") {
		guard, ok := jast.Enclosing[*jast.IfStmt](s)
		if !ok {
			t.Fatalf("every copy must be guarded")
		}

		switch jast.String(guard.Cond) {
		case "peelIdx2 == 0":
			if LoopDepth(s) != 1 {
				t.Errorf("peeled copy must sit in the loop")
			}
			inLoop++
		case "!peelDone0":
			if LoopDepth(s) != 0 {
				t.Errorf("replay must sit outside the loop")
			}
			replay++
		default:
			t.Errorf("unexpected guard %q", jast.String(guard.Cond))
		}
	}

	if inLoop != 1 || replay != 1 {
		t.Fatalf("expected one peeled copy and one replay, got %d and %d", inLoop, replay)
	}

	if len(stmtsNamed(unit, "peelDone0 = true;")) != 1 {
		t.Fatalf("expected the flag to be set after the peeled copy")
	}
}

func TestLoopUnswitchingReplaysOnce(t *testing.T) {
	ctx := newContext(t, assignSource, "Hot", "compute", firstDraws())
	unit := mustMutate(t, NewLoopUnswitching(), ctx)

	copies := stmtsNamed(unit, "acc = acc + n;")
	if len(copies) != 2 {
		t.Fatalf("expected two copies, got %d", len(copies))
	}

	if _, ok := jast.Enclosing[*jast.SwitchCase](copies[0]); !ok || LoopDepth(copies[0]) != 2 {
		t.Errorf("first copy must run inside the switch of the nested loops")
	}

	if _, ok := jast.Enclosing[*jast.SwitchCase](copies[1]); ok || LoopDepth(copies[1]) != 0 {
		t.Errorf("second copy must be the flag-guarded replay")
	}
}

func TestWrappersRespectLoopBudget(t *testing.T) {
	t.Run("one loop fits at depth two", func(t *testing.T) {
		ctx := newContext(t, nestedAssignSource, "Hot", "compute", firstDraws())
		unit := mustMutate(t, NewLoopUnrolling(), ctx)

		if got := len(jast.Find[*jast.ForStmt](unit)); got != 3 {
			t.Fatalf("expected 3 loops, got %d", got)
		}
	})

	t.Run("two loops do not fit at depth two", func(t *testing.T) {
		mustSkip(t, NewLoopUnswitching(), nestedAssignSource)
		mustSkip(t, NewLateZero(), nestedAssignSource)
	})

	t.Run("nothing fits at depth three", func(t *testing.T) {
		mustSkip(t, NewLoopUnrolling(), deepAssignSource)
		mustSkip(t, NewLoopPeeling(), deepAssignSource)
		mustSkip(t, NewDeoptimization(), deepAssignSource)
	})

	t.Run("dead code adds no loop", func(t *testing.T) {
		ctx := newContext(t, deepAssignSource, "Hot", "compute", firstDraws())
		unit := mustMutate(t, NewDeadCode(), ctx)

		if got := len(stmtsNamed(unit, "acc = acc + k;")); got != 2 {
			t.Fatalf("expected a dead copy, got %d copies", got)
		}
	})
}

func TestRedundantStore(t *testing.T) {
	t.Run("duplicates an idempotent store", func(t *testing.T) {
		src := `class Hot {
    static int compute(int n) {
        int acc = 0;
        acc = n * 2;
        return acc;
    }
}
`
		ctx := newContext(t, src, "Hot", "compute", firstDraws())
		unit := mustMutate(t, NewRedundantStore(), ctx)

		body := methodNamed(t, unit, "Hot", "compute").Body
		if len(body.Stmts) != 4 {
			t.Fatalf("expected 4 statements, got %d", len(body.Stmts))
		}

		if jast.String(body.Stmts[1]) != "acc = n * 2;" || jast.String(body.Stmts[2]) != "acc = n * 2;" {
			t.Fatalf("expected adjacent duplicate stores")
		}
	})

	t.Run("skips stores that read their target", func(t *testing.T) {
		mustSkip(t, NewRedundantStore(), assignSource)
	})
}
