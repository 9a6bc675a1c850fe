package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"gopkg.in/yaml.v3"

	"bork/repopath"
	"bork/textdiff"
)

// SpecsDir is the directory whose contents are classified as specifications.
const SpecsDir = "specs"

// skipDirs are never snapshotted regardless of ignore rules.
var skipDirs = map[string]bool{
	".git":        true,
	".direnv":     true,
	"__pycache__": true,
	".claude":     true,
}

// Role classifies a snapshotted file.
type Role int

const (
	RoleCode Role = iota
	RoleSpec
	// RoleNewlyAddedSpec marks a spec present in the working tree but not
	// on the main branch.
	RoleNewlyAddedSpec
)

func (r Role) String() string {
	switch r {
	case RoleSpec:
		return "spec"
	case RoleNewlyAddedSpec:
		return "newly added spec"
	default:
		return "code"
	}
}

// File is one snapshotted file with its contents and classification.
type File struct {
	Path     repopath.RepoPath
	Contents []byte
	Role     Role
	Meta     *SpecMeta
}

// Snapshot is an ordered view of the working tree plus the specs diff
// against the main branch.
type Snapshot struct {
	Files []File

	// BaselineRef is the ref the specs diff was computed against
	// ("main" or "origin/main"). Empty when the repository or the ref
	// is unavailable; the snapshot then carries no diff and no
	// newly-added classification.
	BaselineRef string

	// SpecDiff is the unified diff of specs/ between BaselineRef and the
	// working tree. Newly added specs are not included here; they are
	// flagged in Files and listed in NewSpecs.
	SpecDiff string

	NewSpecs []repopath.RepoPath
}

// Take snapshots the working tree rooted at root.
//
// An unusable repository (no .git, unresolvable main) is recovered locally:
// the snapshot proceeds without a diff and with all specs classified
// plainly as specs.
func Take(root string) (*Snapshot, error) {
	matcher, err := loadIgnoreMatcher(root)
	if err != nil {
		return nil, fmt.Errorf("loading ignore rules: %w", err)
	}

	paths, err := walkFiles(root, matcher)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	baseline, mainSpecs := baselineSpecs(root)

	snap := &Snapshot{BaselineRef: baseline}
	for _, rel := range paths {
		contents, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			// Best-effort: unreadable files are omitted, matching the
			// enumerate-then-read race tolerance of the walk.
			continue
		}
		if !utf8.Valid(contents) {
			// Binary files are not part of the prompt payload.
			continue
		}

		p, err := repopath.Parse(rel)
		if err != nil {
			continue
		}

		f := File{Path: p, Contents: contents, Role: RoleCode}
		if p.HasPrefix(SpecsDir) {
			f.Role = RoleSpec
			f.Meta = parseSpecMeta(contents)
			if baseline != "" {
				if _, onMain := mainSpecs[p.String()]; !onMain {
					f.Role = RoleNewlyAddedSpec
					snap.NewSpecs = append(snap.NewSpecs, p)
				}
			}
		}
		snap.Files = append(snap.Files, f)
	}

	if baseline != "" {
		snap.SpecDiff = specsDiff(snap, mainSpecs)
	}

	return snap, nil
}

// walkFiles enumerates candidate files, sorted, relative to root with
// forward slashes. Symlinks are not followed.
func walkFiles(root string, matcher gitignore.Matcher) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A directory vanished mid-walk; skip it.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		segments := strings.Split(rel, "/")

		if d.IsDir() {
			if skipDirs[d.Name()] || matcher.Match(segments, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if skipDirs[d.Name()] || matcher.Match(segments, false) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// loadIgnoreMatcher reads .gitignore patterns from the tree.
func loadIgnoreMatcher(root string) (gitignore.Matcher, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		if os.IsNotExist(err) {
			patterns = nil
		} else {
			return nil, err
		}
	}
	return gitignore.NewMatcher(patterns), nil
}

// baselineSpecs resolves the main ref and returns the spec files on it.
// Returns ("", nil) when the repository or ref is unavailable.
func baselineSpecs(root string) (string, map[string]string) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", nil
	}

	var baseline string
	var hash *plumbing.Hash
	for _, ref := range []string{"main", "origin/main"} {
		h, err := repo.ResolveRevision(plumbing.Revision(ref))
		if err == nil {
			baseline = ref
			hash = h
			break
		}
	}
	if hash == nil {
		return "", nil
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return "", nil
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", nil
	}

	specs := make(map[string]string)
	iter := tree.Files()
	defer iter.Close()
	for {
		f, err := iter.Next()
		if err != nil {
			break
		}
		if f.Name != SpecsDir && !strings.HasPrefix(f.Name, SpecsDir+"/") {
			continue
		}
		contents, err := f.Contents()
		if err != nil {
			continue
		}
		specs[f.Name] = contents
	}

	return baseline, specs
}

// specsDiff renders the unified diff of specs/ between the baseline and the
// working tree. Newly added specs appear only in the snapshot file list, not
// here. Specs deleted from the working tree diff against empty contents.
func specsDiff(snap *Snapshot, mainSpecs map[string]string) string {
	current := make(map[string]string)
	for _, f := range snap.Files {
		if f.Role == RoleSpec || f.Role == RoleNewlyAddedSpec {
			current[f.Path.String()] = string(f.Contents)
		}
	}

	var paths []string
	for p := range mainSpecs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		// Specs absent from the working tree diff against empty contents;
		// newly added specs are not iterated here at all (their contents
		// are in the snapshot file list, flagged, not duplicated).
		if d := textdiff.Unified("a/"+p, "b/"+p, mainSpecs[p], current[p]); d != "" {
			b.WriteString(d)
		}
	}
	return b.String()
}

// SpecMeta is the YAML frontmatter of a spec document.
type SpecMeta struct {
	Kind string `yaml:"kind"`
}

// parseSpecMeta extracts YAML frontmatter delimited by "---" lines.
// Returns nil when no parseable frontmatter is present.
func parseSpecMeta(contents []byte) *SpecMeta {
	text := string(contents)
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return nil
	}
	rest := text[strings.Index(text, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil
	}

	var meta SpecMeta
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil
	}
	if meta.Kind == "" {
		return nil
	}
	return &meta
}
