package semantic

import "testing"

const javaSource = `package com.example;

import com.example.models.User;
import com.example.util.*;
import static com.example.Util.helper;

public class Calculator extends BaseCalc implements Closeable, Iterable<Integer> {
    private static final int MAX_VALUE = 100;
    private int x, y;

    @Deprecated
    public Calculator(int seed) {
        this.x = seed;
    }

    public int add(int a, int b) {
        return a + b;
    }

    public double add(double a, double b) {
        return a + b;
    }

    public int sum(int... values) {
        int total = 0;
        for (int v : values) total += v;
        return total;
    }

    public class Inner {
        public void ping() {}
    }
}

enum Status {
    ACTIVE("a"),
    INACTIVE("i");

    private final String code;

    Status(String code) {
        this.code = code;
    }
}
`

func indexJava(t *testing.T, source string) []Construct {
	t.Helper()
	return NewJavaIndexer().IndexFile(source, "Calculator.java")
}

func TestJavaIndexFile(t *testing.T) {
	constructs := indexJava(t, javaSource)

	calc := findQualname(t, constructs, "Calculator")
	if calc.Kind != KindClass {
		t.Errorf("Calculator kind = %s, want class", calc.Kind)
	}
	want := []string{"BaseCalc", "Closeable", "Iterable"}
	if len(calc.BaseClasses) != len(want) {
		t.Fatalf("base classes = %v, want %v", calc.BaseClasses, want)
	}
	for i, name := range want {
		if calc.BaseClasses[i] != name {
			t.Errorf("base class %d = %q, want %q (generics stripped, order kept)",
				i, calc.BaseClasses[i], name)
		}
	}

	// Multi-declarator field: one construct per declarator, same span.
	x := findQualname(t, constructs, "Calculator.x")
	y := findQualname(t, constructs, "Calculator.y")
	if x.StartLine != y.StartLine || x.EndLine != y.EndLine {
		t.Errorf("declarators x and y should share the declaration span")
	}
	if x.Kind != KindField {
		t.Errorf("x kind = %s, want field", x.Kind)
	}

	maxValue := findQualname(t, constructs, "Calculator.MAX_VALUE")
	if maxValue.Role != RoleConst {
		t.Error("static final field should have role const")
	}
	if x.Role == RoleConst {
		t.Error("plain field should not have role const")
	}

	// Overloads are distinguished by parameter types.
	findQualname(t, constructs, "Calculator.add(int,int)")
	findQualname(t, constructs, "Calculator.add(double,double)")
	findQualname(t, constructs, "Calculator.sum(int...)")
	ctor := findQualname(t, constructs, "Calculator.Calculator(int)")
	if ctor.Kind != KindMethod {
		t.Errorf("constructor kind = %s, want method", ctor.Kind)
	}

	// Nested class members carry the full path.
	findQualname(t, constructs, "Calculator.Inner")
	findQualname(t, constructs, "Calculator.Inner.ping()")

	status := findQualname(t, constructs, "Status")
	if status.Kind != KindEnum {
		t.Errorf("Status kind = %s, want enum", status.Kind)
	}
	active := findQualname(t, constructs, "Status.ACTIVE")
	if active.Kind != KindField || active.Role != RoleConst {
		t.Errorf("enum constant = %s/%s, want field/const", active.Kind, active.Role)
	}
	findQualname(t, constructs, "Status.Status(String)")
}

func TestJavaOverloadHashesDiffer(t *testing.T) {
	constructs := indexJava(t, javaSource)

	intAdd := findQualname(t, constructs, "Calculator.add(int,int)")
	doubleAdd := findQualname(t, constructs, "Calculator.add(double,double)")
	if intAdd.InterfaceHash == doubleAdd.InterfaceHash {
		t.Error("overloads with different parameter types should have different interface hashes")
	}
}

func TestJavaAnnotationChangesInterfaceHash(t *testing.T) {
	idx := NewJavaIndexer()

	plain := idx.FindConstruct(
		"class A { void m() { int x = 1; } }", "A.java", "A.m()", "")
	annotated := idx.FindConstruct(
		"class A { @Override void m() { int x = 1; } }", "A.java", "A.m()", "")

	if plain == nil || annotated == nil {
		t.Fatal("constructs not found")
	}
	if plain.InterfaceHash == annotated.InterfaceHash {
		t.Error("annotation should change interface hash")
	}
	if plain.BodyHash != annotated.BodyHash {
		t.Error("annotation should not change body hash")
	}
}

func TestJavaBodyHashIgnoresComments(t *testing.T) {
	idx := NewJavaIndexer()

	a := idx.FindConstruct(
		"class A { int m() { return 1 + 2; } }", "A.java", "A.m()", "")
	b := idx.FindConstruct(
		"class A { int m() {\n// sum\nreturn 1 /* one */ + 2;\n} }", "A.java", "A.m()", "")

	if a.BodyHash != b.BodyHash {
		t.Error("comments and whitespace should not change body hash")
	}
}

func TestJavaFieldInitializerChange(t *testing.T) {
	idx := NewJavaIndexer()

	five := idx.FindConstruct("class A { int max = 5; }", "A.java", "A.max", "")
	ten := idx.FindConstruct("class A { int max = 10; }", "A.java", "A.max", "")
	long5 := idx.FindConstruct("class A { long max = 5; }", "A.java", "A.max", "")

	if five.BodyHash == ten.BodyHash {
		t.Error("initializer change should change body hash")
	}
	if five.InterfaceHash != ten.InterfaceHash {
		t.Error("initializer change should not change interface hash")
	}
	if five.InterfaceHash == long5.InterfaceHash {
		t.Error("declared type change should change interface hash")
	}
}

func TestJavaExtractImports(t *testing.T) {
	idx := NewJavaIndexer()

	imports := idx.ExtractImports(javaSource)

	user, ok := imports["User"]
	if !ok {
		t.Fatalf("missing User import, have %v", imports)
	}
	if user.Module != "com.example.models.User" || user.Name != "User" {
		t.Errorf("User import = %+v", user)
	}

	if len(imports) != 1 {
		t.Errorf("wildcard and static imports should be skipped, have %v", imports)
	}
}

func TestJavaContainerMembersIgnoresPrivateFlag(t *testing.T) {
	idx := NewJavaIndexer()

	without := idx.ContainerMembers(javaSource, "Calculator.java", "Calculator", false, nil)
	with := idx.ContainerMembers(javaSource, "Calculator.java", "Calculator", true, nil)

	if len(without) != len(with) {
		t.Errorf("include_private must be ignored for Java: %d vs %d", len(without), len(with))
	}

	for _, m := range without {
		if m.Qualname == "Calculator.Inner.ping()" {
			t.Error("nested container member enumerated as Calculator member")
		}
	}
}
