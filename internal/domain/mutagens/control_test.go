package mutagens

import (
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const loopSource = `class Hot {
    static int sum(int[] a) {
        int s = 0;
        for (int i = 0; i < a.length; i++) {
            s += a[i];
        }
        return s;
    }
}
`

const gridSource = `class Hot {
    static int grid(int n) {
        int s = 0;
        for (int i = 0; i < n; i++) {
            for (int j = 0; j < n; j++) {
                s += j;
            }
        }
        return s;
    }
}
`

func hasToggle(t *testing.T, unit *jast.CompilationUnit) {
	t.Helper()

	hot := jast.FindClass(unit, "Hot")
	if !hasMember(hot, toggleField) || !hasMember(hot, toggleMethod) {
		t.Fatalf("expected the opaque toggle members on Hot")
	}
}

func TestSplitIfStress(t *testing.T) {
	t.Run("nests the if in both arms", func(t *testing.T) {
		src := `class Hot {
    static int pick(int a, int b) {
        int r = 0;
        if (a < b) {
            r = a;
        } else {
            r = b;
        }
        return r;
    }
}
`
		ctx := newContext(t, src, "Hot", "pick", firstDraws())
		unit := mustMutate(t, NewSplitIfStress(), ctx)

		ifs := jast.Find[*jast.IfStmt](unit)
		if len(ifs) != 3 {
			t.Fatalf("expected 3 if statements, got %d", len(ifs))
		}

		for _, s := range ifs {
			if jast.String(s.Cond) != "a < b" || s.Else == nil {
				t.Errorf("unexpected if on %q", jast.String(s.Cond))
			}
		}

		if got := len(stmtsNamed(unit, "r = a;")); got != 2 {
			t.Errorf("expected the then branch in both arms, got %d", got)
		}
	})

	t.Run("skips ifs without else", func(t *testing.T) {
		mustSkip(t, NewSplitIfStress(), `class Hot {
    static int clamp(int a) {
        if (a < 0) {
            a = 0;
        }
        return a;
    }
}
`)
	})

	t.Run("skips impure conditions", func(t *testing.T) {
		mustSkip(t, NewSplitIfStress(), `class Hot {
    static int next(int a) {
        if (a++ < 3) {
            a = 0;
        } else {
            a = 1;
        }
        return a;
    }
}
`)
	})
}

func TestUnswitchScaffold(t *testing.T) {
	ctx := newContext(t, loopSource, "Hot", "sum", firstDraws())
	unit := mustMutate(t, NewUnswitchScaffold(), ctx)

	hasToggle(t, unit)

	if got := len(stmtsNamed(unit, "s += a[i];")); got != 2 {
		t.Fatalf("expected fast and slow copies of the body, got %d", got)
	}

	var scaffolded *jast.ForStmt

	for _, f := range jast.Find[*jast.ForStmt](unit) {
		if jast.String(f.Cond) == "i < a.length" {
			scaffolded = f
		}
	}

	if scaffolded == nil {
		t.Fatalf("original loop is gone")
	}

	split, ok := scaffolded.Body.(*jast.Block).Stmts[0].(*jast.IfStmt)
	if !ok || split.Else == nil {
		t.Fatalf("expected the loop body split by an if")
	}

	if got := jast.String(split.Cond); got != "scaffoldFlag0 || scaffoldZero3 == 0" {
		t.Errorf("unexpected split condition %q", got)
	}

	if len(stmtsNamed(unit, "int unswitchMark1 = 0;")) != 1 {
		t.Errorf("expected the slow copy marker")
	}
}

func TestSinkableMultiply(t *testing.T) {
	t.Run("sinks out of the inner loop", func(t *testing.T) {
		ctx := newContext(t, gridSource, "Hot", "grid", firstDraws())
		unit := mustMutate(t, NewSinkableMultiply(), ctx)

		var inner *jast.ForStmt

		for _, f := range jast.Find[*jast.ForStmt](unit) {
			if jast.String(f.Cond) == "j < n" {
				inner = f
			}
		}

		if inner == nil {
			t.Fatalf("inner loop is gone")
		}

		body := inner.Body.(*jast.Block).Stmts
		if jast.String(body[0]) != "sinkY0++;" {
			t.Errorf("expected the counter first, got %q", jast.String(body[0]))
		}

		if last := jast.String(body[len(body)-1]); last != "toSink1 = 23 * (sinkY0 - 1);" {
			t.Errorf("expected the sinkable multiply last, got %q", last)
		}

		if len(stmtsNamed(unit, "int sinkUse2 = toSink1;")) != 1 {
			t.Errorf("expected the value consumed after the loop")
		}
	})

	t.Run("skips loops that are not nested", func(t *testing.T) {
		mustSkip(t, NewSinkableMultiply(), loopSource)
	})
}

func TestTemplatePredicate(t *testing.T) {
	t.Run("predicates an array store", func(t *testing.T) {
		src := `class Hot {
    static void store(int[] a, int i) {
        a[i] = 7;
    }
}
`
		ctx := newContext(t, src, "Hot", "store", firstDraws())
		unit := mustMutate(t, NewTemplatePredicate(), ctx)

		hasToggle(t, unit)

		if len(stmtsNamed(unit, "a[i] = 7;")) != 1 || len(stmtsNamed(unit, "a[(i + 1) % a.length] = 7;")) != 1 {
			t.Fatalf("expected the original and the shifted store")
		}

		if len(stmtsNamed(unit, "boolean predicateFlag0 = _mutatorFlip();")) != 1 {
			t.Fatalf("expected the opaque flag")
		}
	})

	t.Run("skips stores with side effects in the index", func(t *testing.T) {
		mustSkip(t, NewTemplatePredicate(), `class Hot {
    static void store(int[] a, int i) {
        a[i++] = 7;
    }
}
`)
	})
}

func TestAlgebraic(t *testing.T) {
	tests := []struct {
		name   string
		params string
		rhs    string
		want   string
	}{
		{"de morgan and", "boolean x, boolean y", "x && y", "!(!x || !y)"},
		{"de morgan bitwise or", "int x, int y", "x | y", "~(~x & ~y)"},
		{"double negation", "int x, int y", "x < y", "!(!(x < y))"},
		{"offset identity", "int x, int y", "x + y", "x + y + 1 - 1"},
		{"split shift", "int x, int y", "x << 3", "x << 1 << 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "class Hot {\n    static Object r;\n\n    static void f(" + tt.params + ") {\n        r = " + tt.rhs + ";\n    }\n}\n"
			ctx := newContext(t, src, "Hot", "f", firstDraws())
			unit := mustMutate(t, NewAlgebraic(), ctx)

			stmtNamed(t, unit, "r = "+tt.want+";")
		})
	}

	t.Run("skips shifts by one", func(t *testing.T) {
		mustSkip(t, NewAlgebraic(), `class Hot {
    static int r;

    static void f(int x) {
        r = x << 1;
    }
}
`)
	})
}
