package change

import (
	"bytes"
	"strings"
	"testing"

	"bork/config"
)

func TestValidateDispositions(t *testing.T) {
	var diag bytes.Buffer
	printer := NewPrinter(&diag)
	cfg := &config.Config{}

	set := &Set{Changes: []Change{
		{Op: OpPut, Path: "ok.txt", Contents: []byte("fine")},
		{Op: OpPut, Path: "../evil", Contents: []byte("x")},
		{Op: OpPut, Path: "/abs", Contents: []byte("x")},
		{Op: OpPut, Path: ".config/bork.json", Contents: []byte("{}")},
		{Op: OpPut, Path: "specs/foo.md", Contents: []byte("# spec")},
		{Op: OpDelete, Path: ".git/config"},
		{Op: OpDelete, Path: "gone.txt"},
	}}

	v := Validate(set, cfg, printer)

	if len(v.Accepted) != 2 {
		t.Errorf("Expected 2 accepted, got %+v", v.Accepted)
	}
	if len(v.SyntaxRejected) != 2 {
		t.Errorf("Expected 2 syntax rejections, got %+v", v.SyntaxRejected)
	}
	if len(v.RejectedPrinted) != 2 {
		t.Errorf("Expected 2 immutable rejections, got %+v", v.RejectedPrinted)
	}
	if len(v.ApprovalPending) != 1 || v.ApprovalPending[0].RepoPath.String() != "specs/foo.md" {
		t.Errorf("Expected specs/foo.md pending approval, got %+v", v.ApprovalPending)
	}

	total := len(v.Accepted) + len(v.SyntaxRejected) + len(v.RejectedPrinted) + len(v.ApprovalPending)
	if total != len(set.Changes) {
		t.Errorf("Dispositions must partition the set: %d != %d", total, len(set.Changes))
	}
}

func TestValidatePrintsImmutableContents(t *testing.T) {
	var diag bytes.Buffer
	printer := NewPrinter(&diag)

	attempted := `{"correctness-checker": "pwned.sh"}`
	set := &Set{Changes: []Change{
		{Op: OpPut, Path: ".config/bork.json", Contents: []byte(attempted)},
	}}

	Validate(set, &config.Config{}, printer)

	if !strings.Contains(diag.String(), attempted) {
		t.Errorf("Diagnostic stream must contain the attempted contents literally:\n%s", diag.String())
	}
}

func TestValidateSyntaxRejectionIsQuiet(t *testing.T) {
	var diag bytes.Buffer
	printer := NewPrinter(&diag)

	secret := "never-print-this-payload"
	set := &Set{Changes: []Change{
		{Op: OpPut, Path: "../escape", Contents: []byte(secret)},
	}}

	v := Validate(set, &config.Config{}, printer)

	if len(v.SyntaxRejected) != 1 {
		t.Fatalf("Expected syntax rejection, got %+v", v)
	}
	if strings.Contains(diag.String(), secret) {
		t.Error("Syntax rejections are logged without contents")
	}
	if !strings.Contains(diag.String(), "../escape") {
		t.Error("Syntax rejections must still be logged")
	}
}

func TestValidateNilSet(t *testing.T) {
	v := Validate(nil, &config.Config{}, NewPrinter(&bytes.Buffer{}))
	if len(v.Accepted)+len(v.ApprovalPending)+len(v.RejectedPrinted)+len(v.SyntaxRejected) != 0 {
		t.Errorf("Expected empty validation, got %+v", v)
	}
}
