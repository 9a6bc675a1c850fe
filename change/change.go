package change

import (
	"bork/repopath"
)

// Op is the kind of a proposed file mutation.
type Op int

const (
	// OpPut creates or fully replaces a file.
	OpPut Op = iota
	// OpDelete removes a file.
	OpDelete
)

func (o Op) String() string {
	if o == OpDelete {
		return "delete"
	}
	return "create-or-update"
}

// Change is one proposed mutation from the model. Path is the raw proposed
// string; it has not been validated yet.
type Change struct {
	Op       Op
	Path     string
	Contents []byte
}

// Set is an ordered collection of proposed changes. Order matters only for
// logging; application semantics are order-independent.
type Set struct {
	Changes []Change
}

// Empty reports whether the model proposed no changes.
func (s *Set) Empty() bool {
	return s == nil || len(s.Changes) == 0
}

// Vetted is a change whose path passed syntax validation.
type Vetted struct {
	Change
	RepoPath repopath.RepoPath
}
