package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func writeFile(t *testing.T, root, rel string, contents []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// initRepo creates a git repository with a main branch containing the given
// files as its initial commit.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}

	for rel, contents := range files {
		writeFile(t, root, rel, []byte(contents))
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("git add: %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("git commit: %v", err)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("set main ref: %v", err)
	}
	return root
}

func findFile(snap *Snapshot, rel string) *File {
	for i := range snap.Files {
		if snap.Files[i].Path.String() == rel {
			return &snap.Files[i]
		}
	}
	return nil
}

func TestTakeClassifiesRoles(t *testing.T) {
	root := initRepo(t, map[string]string{
		"main.go":           "package main\n",
		"specs/feature.md":  "# Feature\n",
		"specs/existing.md": "old spec\n",
	})

	// A spec added after the main commit.
	writeFile(t, root, "specs/brand-new.md", []byte("new spec contents\n"))

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	if snap.BaselineRef != "main" {
		t.Fatalf("Expected baseline main, got %q", snap.BaselineRef)
	}

	if f := findFile(snap, "main.go"); f == nil || f.Role != RoleCode {
		t.Errorf("Expected main.go classified as code, got %+v", f)
	}
	if f := findFile(snap, "specs/feature.md"); f == nil || f.Role != RoleSpec {
		t.Errorf("Expected specs/feature.md classified as spec, got %+v", f)
	}
	if f := findFile(snap, "specs/brand-new.md"); f == nil || f.Role != RoleNewlyAddedSpec {
		t.Errorf("Expected specs/brand-new.md classified as newly added, got %+v", f)
	}

	if len(snap.NewSpecs) != 1 || snap.NewSpecs[0].String() != "specs/brand-new.md" {
		t.Errorf("Unexpected NewSpecs: %v", snap.NewSpecs)
	}
}

func TestTakeSpecDiff(t *testing.T) {
	root := initRepo(t, map[string]string{
		"specs/edit-loop.md": "line one\nline two\n",
	})

	writeFile(t, root, "specs/edit-loop.md", []byte("line one\nline two changed\n"))
	writeFile(t, root, "specs/added.md", []byte("fresh contents never in diff\n"))

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	if !strings.Contains(snap.SpecDiff, "-line two") || !strings.Contains(snap.SpecDiff, "+line two changed") {
		t.Errorf("Spec diff missing expected change:\n%s", snap.SpecDiff)
	}
	if strings.Contains(snap.SpecDiff, "fresh contents never in diff") {
		t.Errorf("Newly added spec contents must not appear in the diff:\n%s", snap.SpecDiff)
	}
}

func TestTakeDeletedSpecInDiff(t *testing.T) {
	root := initRepo(t, map[string]string{
		"specs/removed.md": "doomed line\n",
		"keep.go":          "package keep\n",
	})

	if err := os.Remove(filepath.Join(root, "specs", "removed.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	if !strings.Contains(snap.SpecDiff, "-doomed line") {
		t.Errorf("Deleted spec must diff against empty contents:\n%s", snap.SpecDiff)
	}
}

func TestTakeWithoutRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "specs/orphan.md", []byte("spec without vcs\n"))
	writeFile(t, root, "code.go", []byte("package code\n"))

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take must recover without a repository: %v", err)
	}

	if snap.BaselineRef != "" {
		t.Errorf("Expected empty baseline, got %q", snap.BaselineRef)
	}
	if snap.SpecDiff != "" {
		t.Errorf("Expected no diff, got:\n%s", snap.SpecDiff)
	}
	if f := findFile(snap, "specs/orphan.md"); f == nil || f.Role != RoleSpec {
		t.Errorf("Without a baseline all specs are plain specs, got %+v", f)
	}
}

func TestTakeSkipsGitAndBinary(t *testing.T) {
	root := initRepo(t, map[string]string{"a.txt": "text\n"})

	writeFile(t, root, "blob.bin", []byte{0xff, 0xfe, 0x00, 0x01})

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	for _, f := range snap.Files {
		if strings.HasPrefix(f.Path.String(), ".git/") {
			t.Errorf("VCS metadata leaked into snapshot: %s", f.Path)
		}
	}
	if findFile(snap, "blob.bin") != nil {
		t.Error("Binary file must be omitted from the snapshot")
	}
	if findFile(snap, "a.txt") == nil {
		t.Error("Expected a.txt in snapshot")
	}
}

func TestTakeRespectsGitignore(t *testing.T) {
	root := initRepo(t, map[string]string{"kept.txt": "kept\n"})

	writeFile(t, root, ".gitignore", []byte("ignored-dir/\n*.log\n"))
	writeFile(t, root, "ignored-dir/secret.txt", []byte("hidden\n"))
	writeFile(t, root, "noise.log", []byte("log line\n"))

	snap, err := Take(root)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	if findFile(snap, "ignored-dir/secret.txt") != nil {
		t.Error("Gitignored directory contents must be omitted")
	}
	if findFile(snap, "noise.log") != nil {
		t.Error("Gitignored file must be omitted")
	}
	if findFile(snap, "kept.txt") == nil {
		t.Error("Expected kept.txt in snapshot")
	}
	if findFile(snap, ".gitignore") == nil {
		t.Error("The .gitignore file itself is part of the tree")
	}
}

func TestParseSpecMeta(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		kind     string
	}{
		{"with frontmatter", "---\nkind: spec\n---\n# Title\n", "spec"},
		{"no frontmatter", "# Title\n", ""},
		{"unterminated", "---\nkind: spec\n", ""},
		{"other kind", "---\nkind: note\n---\nbody\n", "note"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			meta := parseSpecMeta([]byte(test.contents))
			if test.kind == "" {
				if meta != nil {
					t.Errorf("Expected nil meta, got %+v", meta)
				}
				return
			}
			if meta == nil || meta.Kind != test.kind {
				t.Errorf("Expected kind %q, got %+v", test.kind, meta)
			}
		})
	}
}
