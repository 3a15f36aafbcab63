package mutagens

import (
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
)

const twiceSource = `class Hot {
    static int twice(int x) {
        return x * 2;
    }
}
`

const constantsSource = `class Hot {
    static final int K = 1 + 2;

    static String name() {
        return "x";
    }
}
`

func TestAutobox(t *testing.T) {
	t.Run("boxes a returned value", func(t *testing.T) {
		ctx := newContext(t, twiceSource, "Hot", "twice", firstDraws())
		unit := mustMutate(t, NewAutobox(), ctx)

		stmtNamed(t, unit, "return Integer.valueOf(x * 2);")
	})

	t.Run("boxes arguments of primitive parameters only", func(t *testing.T) {
		src := `class Hot {
    static void take(long v) {
    }

    static void run() {
        take(5L);
    }
}
`
		ctx := newContext(t, src, "Hot", "run", firstDraws())
		unit := mustMutate(t, NewAutobox(), ctx)

		stmtNamed(t, unit, "take(Long.valueOf(5L));")
	})

	t.Run("skips overloads that could rebind", func(t *testing.T) {
		mustSkip(t, NewAutobox(), `class Hot {
    static void take(int v) {
    }

    static void take(Object v) {
    }

    static void run() {
        take(5);
    }
}
`)
	})

	t.Run("skips constant contexts", func(t *testing.T) {
		mustSkip(t, NewAutobox(), constantsSource)
	})

	t.Run("skips narrowing into byte", func(t *testing.T) {
		mustSkip(t, NewAutobox(), `class Hot {
    static byte b;

    static void run() {
        b = 1;
    }
}
`)
	})
}

func TestEscapeAnalysis(t *testing.T) {
	t.Run("routes the value through a carrier", func(t *testing.T) {
		ctx := newContext(t, twiceSource, "Hot", "twice", firstDraws())
		unit := mustMutate(t, NewEscapeAnalysis(), ctx)

		stmtNamed(t, unit, "return new MyInteger(x * 2).v();")

		carrier := jast.FindClass(unit, "MyInteger")
		if carrier == nil || jast.EnclosingClass(carrier) == nil || jast.EnclosingClass(carrier).Name != "Hot" {
			t.Fatalf("expected MyInteger nested in Hot")
		}

		if len(carrier.Members) != 3 {
			t.Fatalf("expected field, constructor and accessor, got %d members", len(carrier.Members))
		}
	})

	t.Run("reuses the carrier", func(t *testing.T) {
		ctx := newContext(t, twiceSource, "Hot", "twice", firstDraws())
		mustMutate(t, NewEscapeAnalysis(), ctx)

		again := NewContext(ctx.Model(), ctx.TestCase(), firstDraws())
		unit := mustMutate(t, NewEscapeAnalysis(), again)

		n := 0

		for _, c := range jast.Find[*jast.ClassDecl](unit) {
			if c.Name == "MyInteger" {
				n++
			}
		}

		if n != 1 {
			t.Fatalf("expected one carrier class, got %d", n)
		}
	})

	t.Run("declares a fresh carrier beside a look-alike", func(t *testing.T) {
		src := `class Hot {
    static int twice(int x) {
        return x * 2;
    }

    static class MyInteger {
        final String value;

        MyInteger(String value) {
            this.value = value;
        }

        String v() {
            return value;
        }
    }
}
`
		ctx := newContext(t, src, "Hot", "twice", firstDraws())
		unit := mustMutate(t, NewEscapeAnalysis(), ctx)

		fresh := carriersIn(t, unit, "Hot")
		if len(fresh) != 1 {
			t.Fatalf("expected one new carrier, got %v", fresh)
		}

		stmtNamed(t, unit, "return new "+fresh[0]+"(x * 2).v();")

		again := NewContext(ctx.Model(), ctx.TestCase(), firstDraws())
		unit = mustMutate(t, NewEscapeAnalysis(), again)

		if reused := carriersIn(t, unit, "Hot"); len(reused) != 1 || reused[0] != fresh[0] {
			t.Fatalf("expected %s reused, got %v", fresh[0], reused)
		}
	})

	t.Run("skips constant contexts", func(t *testing.T) {
		mustSkip(t, NewEscapeAnalysis(), constantsSource)
	})
}

// carriersIn lists the carrier classes nested in owner other than MyInteger.
func carriersIn(t *testing.T, unit *jast.CompilationUnit, owner string) []string {
	t.Helper()

	c := jast.FindClass(unit, owner)
	if c == nil {
		t.Fatalf("class %s not found", owner)
	}

	var out []string

	for _, mem := range c.Members {
		if nested, ok := mem.(*jast.ClassDecl); ok && nested.Name != "MyInteger" && isCarrierName(nested.Name) {
			out = append(out, nested.Name)
		}
	}

	return out
}

func TestInline(t *testing.T) {
	t.Run("extracts a static helper", func(t *testing.T) {
		src := `class Hot {
    static int mix(int a, int b) {
        return a * b + a;
    }
}
`
		ctx := newContext(t, src, "Hot", "mix", firstDraws())
		unit := mustMutate(t, NewInline(), ctx)

		stmtNamed(t, unit, "return inlineHelper0(a, b, a);")

		helper := methodNamed(t, unit, "Hot", "inlineHelper0")
		if !helper.Mods.Has(jast.ModStatic) || !helper.Mods.Has(jast.ModPrivate) || len(helper.Params) != 3 {
			t.Fatalf("expected a private static helper with three parameters")
		}

		if jast.String(helper.Body.Stmts[0]) != "return p0 * p1 + p2;" {
			t.Fatalf("unexpected helper body %q", jast.String(helper.Body.Stmts[0]))
		}
	})

	t.Run("extracts an instance helper", func(t *testing.T) {
		src := `class Hot {
    int f;

    int g(int a) {
        return a + f;
    }
}
`
		ctx := newContext(t, src, "Hot", "g", firstDraws())
		unit := mustMutate(t, NewInline(), ctx)

		helper := methodNamed(t, unit, "Hot", "inlineHelper0")
		if helper.Mods.Has(jast.ModStatic) {
			t.Fatalf("helper of instance code must not be static")
		}

		stmtNamed(t, unit, "return inlineHelper0(a, f);")
	})

	t.Run("skips short-circuit operators", func(t *testing.T) {
		mustSkip(t, NewInline(), `class Hot {
    static boolean both(boolean a, boolean b) {
        return a && b;
    }
}
`)
	})
}
