package change

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"bork/repopath"
)

// Pending-change files for deferred approvals, kept inside the tree so a
// human can review them later.
const (
	pendingSpecPath     = ".claude/pending_spec_changes.json"
	pendingApprovalPath = ".claude/pending_human_approval.json"
)

// Applier commits vetted changes to the working tree and mediates approval
// prompts. It is the only component that mutates the tree.
type Applier struct {
	root     string
	printer  *Printer
	approver Approver
}

// NewApplier creates an applier rooted at the repository root.
func NewApplier(root string, approver Approver, printer *Printer) *Applier {
	return &Applier{root: root, printer: printer, approver: approver}
}

// Apply commits the accepted changes, then walks the approval queue one
// change at a time. Per-change failures are printed and do not stop the
// remaining changes. Denied approvals are printed like immutable rejections
// and recorded in the pending files.
func (a *Applier) Apply(v *Validation) {
	for _, ch := range v.Accepted {
		a.commit(ch, "")
	}

	deniedSpec := &pendingPayload{CreateOrUpdate: map[string]string{}}
	deniedOther := &pendingPayload{CreateOrUpdate: map[string]string{}}

	for _, ch := range v.ApprovalPending {
		current := a.currentContents(ch.RepoPath)
		if a.approver != nil && a.approver.Approve(ch, current) {
			a.commit(ch, "approved")
			continue
		}

		a.printer.RejectedChange("approval denied", ch)
		bucket := deniedOther
		if ch.RepoPath.HasPrefix(specsDir) {
			bucket = deniedSpec
		}
		bucket.add(ch)
	}

	if !deniedSpec.empty() {
		a.recordPending(pendingSpecPath, deniedSpec)
	}
	if !deniedOther.empty() {
		a.recordPending(pendingApprovalPath, deniedOther)
	}
}

// commit applies one vetted change, surfacing failures on the diagnostic
// stream.
func (a *Applier) commit(ch Vetted, note string) {
	var err error
	switch ch.Op {
	case OpPut:
		err = a.put(ch.RepoPath, ch.Contents)
	case OpDelete:
		err = a.remove(ch.RepoPath)
	}

	switch {
	case err == nil && note != "":
		a.printer.Dimf("  %s (%s): %s", ch.Op, note, ch.RepoPath)
	case err == nil:
		a.printer.Dimf("  %s: %s", ch.Op, ch.RepoPath)
	case errors.Is(err, ErrSymlinkInPath):
		a.printer.Failf("  refused %s of %s: %v", ch.Op, ch.RepoPath, err)
	default:
		a.printer.Failf("  failed %s of %s: %v", ch.Op, ch.RepoPath, err)
	}
}

// currentContents reads the present contents of p, best-effort.
func (a *Applier) currentContents(p repopath.RepoPath) []byte {
	data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(p.String())))
	if err != nil {
		return nil
	}
	return data
}

// pendingPayload mirrors the reply schema so pending files can be replayed
// through the harness later.
type pendingPayload struct {
	CreateOrUpdate map[string]string `json:"create-or-update"`
	Delete         []string          `json:"delete"`
}

func (p *pendingPayload) add(ch Vetted) {
	if ch.Op == OpPut {
		p.CreateOrUpdate[ch.RepoPath.String()] = string(ch.Contents)
		return
	}
	p.Delete = append(p.Delete, ch.RepoPath.String())
}

func (p *pendingPayload) empty() bool {
	return len(p.CreateOrUpdate) == 0 && len(p.Delete) == 0
}

// recordPending merges the denied changes into the pending file at rel,
// writing through the same safe path as any other mutation.
func (a *Applier) recordPending(rel string, pending *pendingPayload) {
	p, err := repopath.Parse(rel)
	if err != nil {
		return
	}

	merged := &pendingPayload{CreateOrUpdate: map[string]string{}}
	if existing := a.currentContents(p); existing != nil {
		// Corrupt pending files are overwritten rather than kept.
		_ = json.Unmarshal(existing, merged)
		if merged.CreateOrUpdate == nil {
			merged.CreateOrUpdate = map[string]string{}
		}
	}

	for path, contents := range pending.CreateOrUpdate {
		merged.CreateOrUpdate[path] = contents
	}
	seen := map[string]bool{}
	for _, path := range merged.Delete {
		seen[path] = true
	}
	for _, path := range pending.Delete {
		if !seen[path] {
			merged.Delete = append(merged.Delete, path)
			seen[path] = true
		}
	}
	sort.Strings(merged.Delete)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return
	}
	if err := a.put(p, append(data, '\n')); err != nil {
		a.printer.Failf("  failed to record pending changes in %s: %v", rel, err)
		return
	}
	a.printer.Warnf("Changes requiring approval were deferred; recorded in %s", rel)
}
