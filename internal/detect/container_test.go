package detect

import (
	"testing"
)

const userClassBase = `class User:
    name = "anon"
    email = ""

    def validate(self):
        return bool(self.name)

    def display_name(self):
        return self.name.title()
`

func TestContainerMemberAddAndBodyChange(t *testing.T) {
	// adding greet and changing validate's body yields one AGGREGATE
	// trigger.
	changed := `class User:
    name = "anon"
    email = ""

    def validate(self):
        return bool(self.name) and bool(self.email)

    def display_name(self):
        return self.name.title()

    def greet(self):
        return "hi " + self.name
`
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"models.py": changed})

	sub := containerSub(t, "models.py", userClassBase, "User", false)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected one aggregate trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if trig.ChangeType != ChangeAggregate {
		t.Fatalf("change type = %s, want AGGREGATE", trig.ChangeType)
	}

	hasReason := map[string]bool{}
	for _, r := range trig.Reasons {
		hasReason[r] = true
	}
	if !hasReason[ReasonMemberAdded] || !hasReason[ReasonMemberBodyChanged] {
		t.Errorf("reasons = %v, want member_added and member_body_changed", trig.Reasons)
	}

	if len(trig.Details.MembersAdded) != 1 || trig.Details.MembersAdded[0] != "greet" {
		t.Errorf("members added = %v, want [greet]", trig.Details.MembersAdded)
	}

	var validateChange *MemberChange
	for i := range trig.Details.MemberChanges {
		if trig.Details.MemberChanges[i].RelativeID == "validate" {
			validateChange = &trig.Details.MemberChanges[i]
		}
	}
	if validateChange == nil {
		t.Fatalf("no member change for validate: %+v", trig.Details.MemberChanges)
	}
	if validateChange.ChangeType != ChangeContent {
		t.Errorf("validate change type = %s, want CONTENT", validateChange.ChangeType)
	}
}

func TestContainerMemberRemoved(t *testing.T) {
	changed := `class User:
    name = "anon"
    email = ""

    def validate(self):
        return bool(self.name)
`
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"models.py": changed})

	sub := containerSub(t, "models.py", userClassBase, "User", false)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected trigger, got %+v", result)
	}
	trig := result.Triggers[0]
	if len(trig.Details.MembersRemoved) != 1 || trig.Details.MembersRemoved[0] != "display_name" {
		t.Errorf("members removed = %v, want [display_name]", trig.Details.MembersRemoved)
	}
}

func TestContainerUnchangedIsQuiet(t *testing.T) {
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"models.py": userClassBase})

	sub := containerSub(t, "models.py", userClassBase, "User", false)
	result := scanOne(t, repo, sub)

	if len(result.Triggers)+len(result.Proposals) != 0 {
		t.Fatalf("unchanged container produced output: %+v", result)
	}
}

func TestContainerRenameKeepsMemberBookkeeping(t *testing.T) {
	// The class is renamed but members are untouched: member bookkeeping
	// follows the relative ids, so only container_renamed fires.
	renamed := `class Account:
    name = "anon"
    email = ""

    def validate(self):
        return bool(self.name)

    def display_name(self):
        return self.name.title()
`
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"models.py": renamed})

	sub := containerSub(t, "models.py", userClassBase, "User", false)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 1 {
		t.Fatalf("expected container_renamed trigger, got %+v", result)
	}
	trig := result.Triggers[0]

	hasRenamed := false
	for _, r := range trig.Reasons {
		switch r {
		case ReasonContainerRenamed:
			hasRenamed = true
		case ReasonMemberAdded, ReasonMemberRemoved:
			t.Errorf("rename misread as member churn: %v", trig.Reasons)
		}
	}
	if !hasRenamed {
		t.Errorf("reasons = %v, want container_renamed", trig.Reasons)
	}
	if trig.Details.ContainerQualname != "Account" || trig.Details.BaselineContainerQualname != "User" {
		t.Errorf("details = %+v", trig.Details)
	}
}

func TestContainerPrivateMembersExcludedByDefault(t *testing.T) {
	base := `class User:
    name = "anon"

    def validate(self):
        return True
`
	changed := `class User:
    name = "anon"

    def validate(self):
        return True

    def _internal(self):
        return False
`
	repo := newFakeRepo(t)
	repo.writeWorking(t, map[string]string{"models.py": changed})

	sub := containerSub(t, "models.py", base, "User", false)
	result := scanOne(t, repo, sub)

	if len(result.Triggers) != 0 {
		t.Fatalf("private member addition should be invisible without include_private: %+v", result.Triggers)
	}
}
