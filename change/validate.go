package change

import (
	"bork/config"
	"bork/repopath"
)

// Validation is the result of vetting a Set against the safety policy.
// The four sets are disjoint and preserve the order of the input Set.
type Validation struct {
	// Accepted changes are committed without further ceremony.
	Accepted []Vetted
	// ApprovalPending changes need a per-change human decision.
	ApprovalPending []Vetted
	// RejectedPrinted changes targeted immutable paths; their attempted
	// contents were printed to the diagnostic stream.
	RejectedPrinted []Vetted
	// SyntaxRejected changes had unusable paths and were dropped.
	SyntaxRejected []Change
}

// Validate vets each change in order: path syntax first, then immutability,
// then approval requirements. The first failing check determines the
// disposition; per-change failures never abort the rest of the set.
func Validate(set *Set, cfg *config.Config, printer *Printer) *Validation {
	v := &Validation{}
	if set == nil {
		return v
	}

	for _, ch := range set.Changes {
		p, err := repopath.Parse(ch.Path)
		if err != nil {
			printer.Dimf("  dropping change with unusable path %q: %v", ch.Path, err)
			v.SyntaxRejected = append(v.SyntaxRejected, ch)
			continue
		}

		vetted := Vetted{Change: ch, RepoPath: p}
		switch Classify(p, cfg) {
		case Immutable:
			printer.RejectedChange("immutable path", vetted)
			v.RejectedPrinted = append(v.RejectedPrinted, vetted)
		case ApprovalRequired:
			v.ApprovalPending = append(v.ApprovalPending, vetted)
		default:
			v.Accepted = append(v.Accepted, vetted)
		}
	}

	return v
}
