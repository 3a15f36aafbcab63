package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"jitfuzz.dev/pkg/jitfuzz/internal/jast"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const hotSeed = `package demo;

// jitfuzz:hot demo.Hot#run
class Helper {
    static int twice(int x) {
        return 2 * x;
    }
}

public class Hot {
    static class Inner {
        int v;
    }

    static int run(int n) {
        return Helper.twice(n);
    }

    public static void main(String[] args) {
        System.out.println(run(21));
    }
}
`

func TestLocalJavaFileAdapter_Program(t *testing.T) {
	adapter := NewLocalJavaFileAdapter()
	origin := &m.File{Path: "seeds/Hot.java", Hash: "abc"}

	program, err := adapter.Program(context.Background(), origin, []byte(hotSeed))
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}

	if program.Name != "Hot" {
		t.Fatalf("Program() name = %s, want the public class", program.Name)
	}

	if program.HotClass != "demo.Hot" || program.HotMethod != "run" {
		t.Fatalf("Program() hot = %s#%s", program.HotClass, program.HotMethod)
	}

	if program.Origin != origin || string(program.Source) != hotSeed {
		t.Fatalf("Program() did not keep its origin and source")
	}

	t.Run("class-only directive", func(t *testing.T) {
		program, err := adapter.Program(context.Background(), nil, []byte("//jitfuzz:hot Hot\nclass Hot { }"))
		if err != nil {
			t.Fatalf("Program() error = %v", err)
		}

		if program.HotClass != "Hot" || program.HotMethod != "" {
			t.Fatalf("Program() hot = %s#%s", program.HotClass, program.HotMethod)
		}
	})

	t.Run("no public class falls back to the first", func(t *testing.T) {
		program, err := adapter.Program(context.Background(), nil, []byte("class A { }\nclass B { }"))
		if err != nil {
			t.Fatalf("Program() error = %v", err)
		}

		if program.Name != "A" || program.HotClass != "" {
			t.Fatalf("Program() = %+v", program)
		}
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := adapter.Program(context.Background(), nil, []byte("class {"))

		var perr *jast.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Program() error = %v, want a *jast.ParseError", err)
		}
	})

	t.Run("no classes", func(t *testing.T) {
		if _, err := adapter.Program(context.Background(), nil, []byte("package demo;")); err == nil {
			t.Fatalf("Program() expected error for a unit without classes")
		}
	})
}

func TestLocalJavaFileAdapter_ParsePrint(t *testing.T) {
	adapter := NewLocalJavaFileAdapter()
	ctx := context.Background()

	unit, err := adapter.Parse(ctx, []byte(hotSeed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out, err := adapter.Print(ctx, unit)
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	if !strings.Contains(string(out), "public class Hot {") {
		t.Fatalf("Print() output missing the class:\n%s", out)
	}

	if _, err := adapter.Parse(ctx, out); err != nil {
		t.Fatalf("printed source does not parse: %v", err)
	}

	if _, err := adapter.Print(ctx, nil); err == nil {
		t.Fatalf("Print() expected error for a nil unit")
	}
}

func TestLocalJavaFileAdapter_ContextCancellation(t *testing.T) {
	adapter := NewLocalJavaFileAdapter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.Parse(ctx, []byte(hotSeed)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse() error = %v, want context.Canceled", err)
	}

	if _, err := adapter.Print(ctx, &jast.CompilationUnit{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Print() error = %v, want context.Canceled", err)
	}
}

func TestLocalJavaFileAdapter_RenameClass(t *testing.T) {
	adapter := NewLocalJavaFileAdapter()
	ctx := context.Background()

	unit, err := adapter.Parse(ctx, []byte(hotSeed))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := adapter.RenameClass(ctx, unit, "Hot", "Hot_1a2b3c4d"); err != nil {
		t.Fatalf("RenameClass() error = %v", err)
	}

	names := adapter.ClassNames(ctx, unit)
	want := []string{"demo.Helper", "demo.Hot_1a2b3c4d", "demo.Hot_1a2b3c4d$Inner"}

	if strings.Join(names, " ") != strings.Join(want, " ") {
		t.Fatalf("ClassNames() = %v, want %v", names, want)
	}

	if err := adapter.RenameClass(ctx, unit, "Missing", "Other"); err == nil {
		t.Fatalf("RenameClass() expected error for an undeclared class")
	}
}
