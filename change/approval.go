package change

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"bork/textdiff"
)

// Approver decides whether a single approval-required change may be
// committed. Approvals are never cached: one call per change, every
// iteration.
type Approver interface {
	Approve(v Vetted, current []byte) bool
}

// TerminalApprover asks the operator on the terminal, showing a diff of the
// proposed change first. When stdin is not a terminal every request is
// denied, so a sandboxed non-interactive run can never self-approve.
type TerminalApprover struct {
	printer *Printer
	in      *bufio.Reader
	isTTY   func() bool
}

// NewTerminalApprover creates an approver reading decisions from stdin.
func NewTerminalApprover(printer *Printer) *TerminalApprover {
	return &TerminalApprover{
		printer: printer,
		in:      bufio.NewReader(os.Stdin),
		isTTY: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
}

// Approve implements Approver.
func (t *TerminalApprover) Approve(v Vetted, current []byte) bool {
	proposed := ""
	if v.Op == OpPut {
		proposed = string(v.Contents)
	}

	t.printer.Headerf("--- PROPOSED CHANGE (REQUIRES APPROVAL): %s %s ---", v.Op, v.RepoPath)
	diff := textdiff.Unified("a/"+v.RepoPath.String(), "b/"+v.RepoPath.String(), string(current), proposed)
	if diff != "" {
		t.printer.Raw(diff)
	}
	t.printer.Headerf("--- END PROPOSED CHANGE: %s ---", v.RepoPath)

	if !t.isTTY() {
		t.printer.Dimf("  (non-interactive stdin; approval-required change deferred: %s)", v.RepoPath)
		return false
	}

	t.printer.Raw("Approve " + v.Op.String() + " to " + v.RepoPath.String() + "? Type 'yes' to approve: ")
	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}
