package detect

import (
	"strings"
	"testing"

	"github.com/anthropics/codewatch/internal/semantic"
	"github.com/anthropics/codewatch/internal/subs"
)

// semanticSub builds a semantic subscription by indexing the base-side
// source, mirroring what 'cw add' captures.
func semanticSub(t *testing.T, path, source, qualname string, kind semantic.Kind) subs.Subscription {
	t.Helper()

	_, indexer, err := semantic.GetIndexerForPath(path)
	if err != nil {
		t.Fatal(err)
	}

	construct := indexer.FindConstruct(source, path, qualname, kind)
	if construct == nil {
		t.Fatalf("construct %q not found in base source", qualname)
	}

	lang, _ := semantic.DetectLanguage(path)
	sub := subs.New(path, construct.StartLine, construct.EndLine)
	sub.Semantic = &subs.SemanticTarget{
		Language:           string(lang),
		Kind:               construct.Kind,
		Qualname:           construct.Qualname,
		Role:               construct.Role,
		InterfaceHash:      construct.InterfaceHash,
		BodyHash:           construct.BodyHash,
		FingerprintVersion: 1,
	}
	return sub
}

// containerSub builds a container subscription with baseline members.
func containerSub(t *testing.T, path, source, qualname string, includePrivate bool) subs.Subscription {
	t.Helper()

	sub := semanticSub(t, path, source, qualname, "")
	sub.Semantic.IncludeMembers = true
	sub.Semantic.IncludePrivate = includePrivate
	sub.Semantic.BaselineContainerQualname = qualname

	_, indexer, err := semantic.GetIndexerForPath(path)
	if err != nil {
		t.Fatal(err)
	}
	constructs := indexer.IndexFile(source, path)
	members := indexer.ContainerMembers(source, path, qualname, includePrivate, constructs)

	sub.Semantic.BaselineMembers = map[string]semantic.MemberFingerprint{}
	for _, m := range members {
		if rel, ok := semantic.RelativeID(qualname, m.Qualname); ok {
			sub.Semantic.BaselineMembers[rel] = m.Fingerprint()
		}
	}
	return sub
}

func scanOne(t *testing.T, repo *fakeRepo, sub subs.Subscription) *ScanResult {
	t.Helper()
	d := NewDetector(repo)
	result, err := d.Scan([]subs.Subscription{sub}, "base", "")
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestSemanticBodyChange(t *testing.T) {
	// changing a constant's value is a CONTENT trigger.
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"config.py": "MAX_RETRIES = 10\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected one trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeContent {
		t.Errorf("change type = %s, want CONTENT", trig.ChangeType)
	}
	if len(trig.Reasons) != 1 || trig.Reasons[0] != ReasonBodyChanged {
		t.Errorf("reasons = %v, want [body_changed]", trig.Reasons)
	}
}

func TestSemanticInterfaceChange(t *testing.T) {
	// adding an annotation is STRUCTURAL.
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"config.py": "MAX_RETRIES: int = 5\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected one trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeStructural || trig.Reasons[0] != ReasonInterfaceChanged {
		t.Errorf("trigger = %s %v, want STRUCTURAL interface_changed", trig.ChangeType, trig.Reasons)
	}
}

func TestSemanticCosmeticChangeIsQuiet(t *testing.T) {
	baseSource := "def f(x):\n    return x + 1\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"m.py": "def f(x):\n    # explain\n    return x + 1\n"})

	sub := semanticSub(t, "m.py", baseSource, "f", semantic.KindFunction)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("comment-only change triggered: %+v", result.Triggers)
	}
	// The construct grew a line, so a relocation proposal is fine.
}

func TestSemanticLineShiftProposal(t *testing.T) {
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"config.py": "# header\n\nMAX_RETRIES = 5\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("unexpected triggers: %+v", result.Triggers)
	}
	if len(result.Proposals) != 1 {
		t.Fatalf("expected line shift proposal, got %+v", result)
	}
	p := result.Proposals[0]
	if p.Reasons[0] != ReasonLineShift || p.NewStart != 3 {
		t.Errorf("proposal = %+v", p)
	}
}

func TestSemanticRenamedFileStage1(t *testing.T) {
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.nameStatus = "R100\tconfig.py\tsettings.py\n"
	repo.writeWorking(t, map[string]string{"settings.py": "MAX_RETRIES = 5\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("unchanged construct in renamed file triggered: %+v", result.Triggers)
	}
	if len(result.Proposals) != 1 {
		t.Fatalf("expected rename proposal, got %+v", result)
	}
	p := result.Proposals[0]
	if p.NewPath != "settings.py" || p.Reasons[0] != ReasonRename || p.Confidence != ConfidenceHigh {
		t.Errorf("proposal = %+v", p)
	}
}

func TestSemanticStage2RenamedConstruct(t *testing.T) {
	// The variable is renamed in place: stage 2 finds it by hashes.
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"config.py": "RETRY_LIMIT = 5\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("rename-only change triggered: %+v", result.Triggers)
	}
	if len(result.Proposals) != 1 {
		t.Fatalf("expected semantic_location proposal, got %+v", result)
	}
	p := result.Proposals[0]
	if p.Reasons[0] != ReasonSemanticLocation {
		t.Errorf("reasons = %v", p.Reasons)
	}
	if p.NewQualname != "RETRY_LIMIT" {
		t.Errorf("new qualname = %q, want RETRY_LIMIT", p.NewQualname)
	}
}

func TestSemanticCrossFileMove(t *testing.T) {
	// the constant moves verbatim to a new file.
	baseSource := "MAX_RETRIES = 5\nOTHER = 1\nANOTHER = 2\n"
	repo := newFakeRepo(t)
	repo.patch = strings.Join([]string{
		"diff --git a/config.py b/config.py",
		"@@ -1 +0,0 @@",
		"diff --git a/constants.py b/constants.py",
		"new file mode 100644",
		"@@ -0,0 +1 @@",
		"",
	}, "\n")
	repo.writeWorking(t, map[string]string{
		"config.py":    "OTHER = 1\nANOTHER = 2\n",
		"constants.py": "MAX_RETRIES = 5\n",
	})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("verbatim move triggered: %+v", result.Triggers)
	}
	if len(result.Proposals) != 1 {
		t.Fatalf("expected moved_cross_file proposal, got %+v", result)
	}
	p := result.Proposals[0]
	if p.Reasons[0] != ReasonMovedCrossFile || p.NewPath != "constants.py" {
		t.Errorf("proposal = %+v", p)
	}
	if p.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high for exact tier", p.Confidence)
	}
}

func TestSemanticCrossFileMoveWithBodyChange(t *testing.T) {
	// moved and changed — interface-only tier, low confidence,
	// plus a CONTENT trigger.
	baseSource := "MAX_RETRIES = 5\nOTHER = 1\nANOTHER = 2\n"
	repo := newFakeRepo(t)
	repo.patch = strings.Join([]string{
		"diff --git a/config.py b/config.py",
		"@@ -1 +0,0 @@",
		"diff --git a/constants.py b/constants.py",
		"new file mode 100644",
		"@@ -0,0 +1 @@",
		"",
	}, "\n")
	repo.writeWorking(t, map[string]string{
		"config.py":    "OTHER = 1\nANOTHER = 2\n",
		"constants.py": "MAX_RETRIES = 10\n",
	})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Proposals) != 1 {
		t.Fatalf("expected proposal, got %+v", result)
	}
	if result.Proposals[0].Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low for interface tier", result.Proposals[0].Confidence)
	}

	if len(result.Triggers) != 1 {
		t.Fatalf("expected CONTENT trigger, got %+v", result.Triggers)
	}
	if result.Triggers[0].ChangeType != ChangeContent {
		t.Errorf("change type = %s", result.Triggers[0].ChangeType)
	}
}

func TestSemanticMissing(t *testing.T) {
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"config.py": "def unrelated():\n    pass\n"})

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected MISSING trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeMissing || trig.Reasons[0] != ReasonSemanticTargetMissing {
		t.Errorf("trigger = %s %v", trig.ChangeType, trig.Reasons)
	}
}

func TestSemanticFileDeletedMissing(t *testing.T) {
	baseSource := "MAX_RETRIES = 5\n"
	repo := newFakeRepo(t)
	repo.nameStatus = "D\tconfig.py\n"

	sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeMissing || trig.Reasons[0] != ReasonFileDeleted {
		t.Errorf("trigger = %s %v, want MISSING file_deleted", trig.ChangeType, trig.Reasons)
	}
}

func TestSemanticDuplicateFound(t *testing.T) {
	baseSource := "MAX_RETRIES = 5\n"
	patch := strings.Join([]string{
		"diff --git a/config.py b/config.py",
		"@@ -1 +0,0 @@",
		"diff --git a/a.py b/a.py",
		"new file mode 100644",
		"@@ -0,0 +1 @@",
		"diff --git a/b.py b/b.py",
		"new file mode 100644",
		"@@ -0,0 +1 @@",
		"",
	}, "\n")

	makeRepo := func(t *testing.T) *fakeRepo {
		repo := newFakeRepo(t)
		repo.patch = patch
		repo.writeWorking(t, map[string]string{
			"config.py": "OTHER = 1\nANOTHER = 2\n",
			"a.py":      "MAX_RETRIES = 5\n",
			"b.py":      "MAX_RETRIES = 5\n",
		})
		return repo
	}

	t.Run("trigger_on_duplicate", func(t *testing.T) {
		sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)
		sub.TriggerOnDuplicate = true

		result := scanOne(t, makeRepo(t), sub)
		if len(result.Triggers) != 1 {
			t.Fatalf("expected AMBIGUOUS trigger, got %+v", result)
		}
		trig := result.Triggers[0]
		if trig.ChangeType != ChangeAmbiguous || trig.Reasons[0] != ReasonDuplicateFound {
			t.Errorf("trigger = %s %v", trig.ChangeType, trig.Reasons)
		}
		if len(trig.Details.Locations) != 2 {
			t.Errorf("locations = %v", trig.Details.Locations)
		}
		if len(result.Proposals) != 0 {
			t.Error("ambiguous match must not propose")
		}
	})

	t.Run("default_silent", func(t *testing.T) {
		sub := semanticSub(t, "config.py", baseSource, "MAX_RETRIES", semantic.KindVariable)

		result := scanOne(t, makeRepo(t), sub)
		if len(result.Triggers)+len(result.Proposals) != 0 {
			t.Fatalf("duplicates without the flag must stay silent: %+v", result)
		}
		if len(result.Unchanged) != 1 {
			t.Error("subscription should land in unchanged")
		}
	})
}

func TestSemanticUnsupportedLanguage(t *testing.T) {
	repo := newFakeRepo(t)

	sub := subs.New("main.rs", 1, 1)
	sub.Semantic = &subs.SemanticTarget{
		Language: "rust",
		Kind:     semantic.KindFunction,
		Qualname: "main",
	}

	result := scanOne(t, repo, sub)
	if len(result.Triggers) != 1 {
		t.Fatalf("expected AMBIGUOUS trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeAmbiguous || trig.Reasons[0] != ReasonUnsupportedLanguage {
		t.Errorf("trigger = %s %v", trig.ChangeType, trig.Reasons)
	}
	if trig.Details == nil || trig.Details.Error == "" {
		t.Error("details should carry the error text")
	}
}
