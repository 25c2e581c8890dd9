package access

import (
	"errors"
	"testing"
)

func TestCheck_StudentDeniedOtherGrade(t *testing.T) {
	g := NewGuardWith(true, true)
	caller := Caller{ID: "s1", Role: RoleStudent, Grade: 5}

	err := g.Check(caller, 7, "document_collection")
	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v, want DeniedError", err)
	}
	if denied.UserGrade != 5 || denied.ResourceGrade != 7 || denied.ResourceType != "document_collection" {
		t.Errorf("denial payload = %+v", denied)
	}
}

func TestCheck_StudentAllowedOwnGrade(t *testing.T) {
	g := NewGuardWith(true, true)
	caller := Caller{ID: "s1", Role: RoleStudent, Grade: 5}
	if err := g.Check(caller, 5, "document_collection"); err != nil {
		t.Errorf("own grade should pass, got %v", err)
	}
}

func TestCheck_StaffBypass(t *testing.T) {
	g := NewGuardWith(true, true)
	for _, role := range []string{RoleTeacher, RoleAdmin} {
		caller := Caller{ID: "u", Role: role, Grade: 5}
		if err := g.Check(caller, 8, "mastery"); err != nil {
			t.Errorf("%s should bypass, got %v", role, err)
		}
	}
}

func TestCheck_StaffBypassDisabled(t *testing.T) {
	g := NewGuardWith(true, false)
	caller := Caller{ID: "u", Role: RoleTeacher, Grade: 5}
	if err := g.Check(caller, 8, "mastery"); err == nil {
		t.Error("teacher should be denied when bypass is off")
	}
}

func TestCheck_EnforcementOff(t *testing.T) {
	g := NewGuardWith(false, false)
	caller := Caller{ID: "s1", Role: RoleStudent, Grade: 5}
	if err := g.Check(caller, 12, "document_collection"); err != nil {
		t.Errorf("enforcement off should always pass, got %v", err)
	}
}

func TestFilterGrades(t *testing.T) {
	g := NewGuardWith(true, true)
	type doc struct{ Grade int }
	docs := []doc{{5}, {6}, {5}, {7}}

	student := Caller{ID: "s", Role: RoleStudent, Grade: 5}
	got := FilterGrades(g, student, docs, func(d doc) int { return d.Grade })
	if len(got) != 2 {
		t.Errorf("student sees %d docs, want 2", len(got))
	}

	teacher := Caller{ID: "t", Role: RoleTeacher}
	got = FilterGrades(g, teacher, docs, func(d doc) int { return d.Grade })
	if len(got) != 4 {
		t.Errorf("teacher sees %d docs, want 4", len(got))
	}
}
