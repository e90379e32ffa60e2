package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anthropics/codewatch/internal/parser"
)

// writeRepoFiles lays out a fake repository on disk for lazy resolution.
func writeRepoFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestPythonInheritanceChainAcrossFiles(t *testing.T) {
	root := writeRepoFiles(t, map[string]string{
		"models.py": "class Base:\n    def save(self):\n        return True\n\n\nclass User(Base):\n    def validate(self):\n        return True\n",
	})

	idx := NewPythonIndexer()
	resolver := NewInheritanceResolver(root, parser.Python, idx)

	childSource := "from models import User\n\n\nclass Admin(User):\n    def promote(self):\n        return True\n"
	constructs := idx.IndexFile(childSource, "admin.py")
	resolver.AddFile("admin.py", constructs, childSource)

	chain := resolver.InheritanceChain("admin.py", "Admin")

	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2 (User, Base): %+v", len(chain), chain)
	}
	if chain[0].Qualname != "User" || chain[0].Path != "models.py" {
		t.Errorf("first ancestor = %s in %s, want User in models.py", chain[0].Qualname, chain[0].Path)
	}
	if chain[1].Qualname != "Base" {
		t.Errorf("second ancestor = %s, want Base", chain[1].Qualname)
	}
}

func TestPythonRelativeImportResolution(t *testing.T) {
	root := writeRepoFiles(t, map[string]string{
		"pkg/base.py": "class Base:\n    def save(self):\n        return True\n",
	})

	idx := NewPythonIndexer()
	resolver := NewInheritanceResolver(root, parser.Python, idx)

	childSource := "from .base import Base\n\n\nclass Child(Base):\n    pass\n"
	constructs := idx.IndexFile(childSource, "pkg/child.py")
	resolver.AddFile("pkg/child.py", constructs, childSource)

	chain := resolver.InheritanceChain("pkg/child.py", "Child")
	if len(chain) != 1 || chain[0].Path != "pkg/base.py" {
		t.Fatalf("chain = %+v, want Base from pkg/base.py", chain)
	}
}

func TestInheritanceCycleIsCut(t *testing.T) {
	root := writeRepoFiles(t, map[string]string{})

	idx := NewPythonIndexer()
	resolver := NewInheritanceResolver(root, parser.Python, idx)

	// A and B extend each other in the same file.
	source := "class A(B):\n    pass\n\n\nclass B(A):\n    pass\n"
	constructs := idx.IndexFile(source, "cycle.py")
	resolver.AddFile("cycle.py", constructs, source)

	chain := resolver.InheritanceChain("cycle.py", "A")
	if len(chain) > 2 {
		t.Fatalf("cycle not cut: %+v", chain)
	}
}

func TestJavaImportResolutionUnderSourceRoots(t *testing.T) {
	root := writeRepoFiles(t, map[string]string{
		"src/main/java/com/example/Base.java": "package com.example;\n\npublic class Base {\n    public void save() {}\n}\n",
	})

	idx := NewJavaIndexer()
	resolver := NewInheritanceResolver(root, parser.Java, idx)

	childSource := "package com.example.app;\n\nimport com.example.Base;\n\npublic class Child extends Base {\n}\n"
	constructs := idx.IndexFile(childSource, "src/main/java/com/example/app/Child.java")
	resolver.AddFile("src/main/java/com/example/app/Child.java", constructs, childSource)

	chain := resolver.InheritanceChain("src/main/java/com/example/app/Child.java", "Child")
	if len(chain) != 1 {
		t.Fatalf("chain = %+v, want Base", chain)
	}
	if chain[0].Path != "src/main/java/com/example/Base.java" {
		t.Errorf("resolved path = %s", chain[0].Path)
	}
}

func TestUnresolvedExternalBaseIsSkipped(t *testing.T) {
	root := writeRepoFiles(t, map[string]string{})

	idx := NewPythonIndexer()
	resolver := NewInheritanceResolver(root, parser.Python, idx)

	source := "class Model(django.db.Model):\n    pass\n"
	constructs := idx.IndexFile(source, "m.py")
	resolver.AddFile("m.py", constructs, source)

	chain := resolver.InheritanceChain("m.py", "Model")
	if len(chain) != 0 {
		t.Fatalf("external base should be skipped silently, got %+v", chain)
	}
}

func TestOverriddenMembers(t *testing.T) {
	idx := NewPythonIndexer()
	source := "class Admin:\n    def validate(self):\n        return True\n\n    def promote(self):\n        return True\n"
	constructs := idx.IndexFile(source, "a.py")
	members := idx.ContainerMembers(source, "a.py", "Admin", true, constructs)

	overridden := OverriddenMembers(members, "Admin", parser.Python)
	if !overridden["validate"] || !overridden["promote"] {
		t.Errorf("overridden = %v", overridden)
	}
}

func TestMemberID(t *testing.T) {
	if got := MemberID("process(Order,User)", parser.Java); got != "process(Order,User)" {
		t.Errorf("java member id = %q, overloads must stay distinct", got)
	}
	if got := MemberID("validate", parser.Python); got != "validate" {
		t.Errorf("python member id = %q", got)
	}
}
