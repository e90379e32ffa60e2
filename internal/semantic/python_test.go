package semantic

import (
	"testing"
)

const pythonModule = `import os
from models import User as U

MAX_RETRIES = 5
timeout: int = 30

def fetch(url, retries=3):
    return url


class Color(Enum):
    RED = 1
    GREEN = 2


@dataclass
class User(Base):
    name = "anon"
    _secret = "hidden"

    def validate(self):
        return bool(self.name)

    def display_name(self):
        return self.name.title()

    class Meta:
        ordering = "name"
`

func indexPython(t *testing.T, source string) []Construct {
	t.Helper()
	return NewPythonIndexer().IndexFile(source, "mod.py")
}

func findQualname(t *testing.T, constructs []Construct, qualname string) Construct {
	t.Helper()
	for _, c := range constructs {
		if c.Qualname == qualname {
			return c
		}
	}
	t.Fatalf("construct %q not found in %v", qualname, qualnames(constructs))
	return Construct{}
}

func qualnames(constructs []Construct) []string {
	names := make([]string, len(constructs))
	for i, c := range constructs {
		names[i] = c.Qualname
	}
	return names
}

func TestPythonIndexFile(t *testing.T) {
	constructs := indexPython(t, pythonModule)

	maxRetries := findQualname(t, constructs, "MAX_RETRIES")
	if maxRetries.Kind != KindVariable {
		t.Errorf("MAX_RETRIES kind = %s, want variable", maxRetries.Kind)
	}
	if maxRetries.Role != RoleConst {
		t.Errorf("MAX_RETRIES role = %q, want const", maxRetries.Role)
	}

	timeout := findQualname(t, constructs, "timeout")
	if timeout.Role != "" {
		t.Errorf("timeout role = %q, want none", timeout.Role)
	}

	fetch := findQualname(t, constructs, "fetch")
	if fetch.Kind != KindFunction {
		t.Errorf("fetch kind = %s, want function", fetch.Kind)
	}

	color := findQualname(t, constructs, "Color")
	if color.Kind != KindEnum {
		t.Errorf("Color kind = %s, want enum (Enum base)", color.Kind)
	}
	red := findQualname(t, constructs, "Color.RED")
	if red.Kind != KindField || red.Role != RoleConst {
		t.Errorf("Color.RED = %s/%s, want field/const", red.Kind, red.Role)
	}

	user := findQualname(t, constructs, "User")
	if user.Kind != KindClass {
		t.Errorf("User kind = %s, want class", user.Kind)
	}
	if len(user.BaseClasses) != 1 || user.BaseClasses[0] != "Base" {
		t.Errorf("User base classes = %v, want [Base]", user.BaseClasses)
	}
	// Decorated class: span starts at the decorator, definition at the
	// class keyword.
	if user.DefinitionLine != user.StartLine+1 {
		t.Errorf("User start=%d definition=%d, want definition one line below decorator",
			user.StartLine, user.DefinitionLine)
	}

	validate := findQualname(t, constructs, "User.validate")
	if validate.Kind != KindMethod {
		t.Errorf("User.validate kind = %s, want method", validate.Kind)
	}

	meta := findQualname(t, constructs, "User.Meta")
	if meta.Kind != KindClass {
		t.Errorf("User.Meta kind = %s, want class", meta.Kind)
	}
	// Nested container members carry the full dotted path.
	findQualname(t, constructs, "User.Meta.ordering")
}

func TestPythonFindConstruct(t *testing.T) {
	idx := NewPythonIndexer()

	c := idx.FindConstruct(pythonModule, "mod.py", "User.validate", KindMethod)
	if c == nil {
		t.Fatal("User.validate not found")
	}
	if c.Qualname != "User.validate" {
		t.Errorf("qualname = %q", c.Qualname)
	}

	if idx.FindConstruct(pythonModule, "mod.py", "User.validate", KindField) != nil {
		t.Error("kind filter should exclude methods")
	}
	if idx.FindConstruct(pythonModule, "mod.py", "Nope", "") != nil {
		t.Error("unknown qualname should return nil")
	}
}

func TestPythonContainerMembers(t *testing.T) {
	idx := NewPythonIndexer()

	members := idx.ContainerMembers(pythonModule, "mod.py", "User", false, nil)
	ids := map[string]bool{}
	for _, m := range members {
		rel, _ := RelativeID("User", m.Qualname)
		ids[rel] = true
	}

	for _, want := range []string{"name", "validate", "display_name", "Meta"} {
		if !ids[want] {
			t.Errorf("expected member %q, got %v", want, ids)
		}
	}
	if ids["_secret"] {
		t.Error("private member leaked without include_private")
	}
	if ids["Meta.ordering"] {
		t.Error("nested container member enumerated as User member")
	}

	withPrivate := idx.ContainerMembers(pythonModule, "mod.py", "User", true, nil)
	found := false
	for _, m := range withPrivate {
		if m.Qualname == "User._secret" {
			found = true
		}
	}
	if !found {
		t.Error("include_private should surface _secret")
	}
}

func TestPythonBodyHashWhitespaceInvariance(t *testing.T) {
	idx := NewPythonIndexer()

	a := idx.FindConstruct("def f(x):\n    return x + 1\n", "a.py", "f", "")
	b := idx.FindConstruct("def f(x):\n    # add one\n    return (x +\n        1)\n", "a.py", "f", "")
	if a == nil || b == nil {
		t.Fatal("constructs not found")
	}
	if a.BodyHash != b.BodyHash {
		t.Error("comment and whitespace reformatting changed body hash")
	}

	c := idx.FindConstruct("def f(x):\n    return x + 2\n", "a.py", "f", "")
	if c.BodyHash == a.BodyHash {
		t.Error("real body change kept body hash")
	}
}

func TestPythonRenameResistance(t *testing.T) {
	idx := NewPythonIndexer()

	orig := idx.FindConstruct("def fetch(url, retries=3):\n    return url\n", "a.py", "fetch", "")
	renamed := idx.FindConstruct("def grab(url, retries=3):\n    return url\n", "a.py", "grab", "")

	if orig.BodyHash != renamed.BodyHash {
		t.Error("rename changed body hash")
	}
	if orig.InterfaceHash != renamed.InterfaceHash {
		t.Error("rename changed interface hash despite identical signature")
	}

	retyped := idx.FindConstruct("def fetch(url, retries=5):\n    return url\n", "a.py", "fetch", "")
	if orig.InterfaceHash == retyped.InterfaceHash {
		t.Error("default change should change interface hash")
	}
}

func TestPythonAnnotationChangesInterfaceHash(t *testing.T) {
	idx := NewPythonIndexer()

	plain := idx.FindConstruct("MAX_RETRIES = 5\n", "a.py", "MAX_RETRIES", "")
	annotated := idx.FindConstruct("MAX_RETRIES: int = 5\n", "a.py", "MAX_RETRIES", "")

	if plain.InterfaceHash == annotated.InterfaceHash {
		t.Error("adding a type annotation should change interface hash")
	}
	if plain.BodyHash != annotated.BodyHash {
		t.Error("annotation alone should not change body hash")
	}

	changed := idx.FindConstruct("MAX_RETRIES = 10\n", "a.py", "MAX_RETRIES", "")
	if plain.BodyHash == changed.BodyHash {
		t.Error("value change should change body hash")
	}
	if plain.InterfaceHash != changed.InterfaceHash {
		t.Error("value change should not change interface hash")
	}
}

func TestPythonDecoratorChangesInterfaceHash(t *testing.T) {
	idx := NewPythonIndexer()

	plain := idx.FindConstruct("class A:\n    def m(self):\n        return 1\n", "a.py", "A.m", "")
	decorated := idx.FindConstruct("class A:\n    @staticmethod\n    def m(self):\n        return 1\n", "a.py", "A.m", "")

	if plain.InterfaceHash == decorated.InterfaceHash {
		t.Error("decorator should change interface hash")
	}
	if plain.BodyHash != decorated.BodyHash {
		t.Error("decorator should not change body hash")
	}
}

func TestPythonExtractImports(t *testing.T) {
	idx := NewPythonIndexer()

	source := `import os
import utils.helpers as helpers
from models import User
from models import Account as Acct
from . import sibling
from ..pkg import Thing
from models import *
`

	imports := idx.ExtractImports(source)

	tests := []struct {
		local  string
		module string
		name   string
	}{
		{"os", "os", "os"},
		{"helpers", "utils.helpers", "helpers"},
		{"User", "models", "User"},
		{"Acct", "models", "Account"},
		{"sibling", ".", "sibling"},
		{"Thing", "..pkg", "Thing"},
	}

	for _, tt := range tests {
		imp, ok := imports[tt.local]
		if !ok {
			t.Errorf("missing import %q (have %v)", tt.local, imports)
			continue
		}
		if imp.Module != tt.module || imp.Name != tt.name {
			t.Errorf("import %q = (%q, %q), want (%q, %q)",
				tt.local, imp.Module, imp.Name, tt.module, tt.name)
		}
	}
}

func TestPythonParseErrorFlag(t *testing.T) {
	constructs := indexPython(t, "def ok():\n    return 1\n\ndef broken(:\n    pass\n")
	if len(constructs) == 0 {
		t.Skip("parser produced no constructs for broken file")
	}
	for _, c := range constructs {
		if !c.HasParseError {
			t.Errorf("construct %s missing parse error flag", c.Qualname)
		}
	}
}
