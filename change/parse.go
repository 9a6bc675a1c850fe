package change

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrReplyNotJSON indicates no JSON object matching the change schema could
// be extracted from the model's reply. No changes are applied in that case.
var ErrReplyNotJSON = errors.New("no change payload found in LLM reply")

// ParseReply extracts the change payload from a raw model reply.
//
// The expected schema is
//
//	{"create-or-update": {"path": "contents", ...}, "delete": ["path", ...]}
//
// Both fields default to empty when absent; additional top-level fields are
// ignored. The reply may embed the object in surrounding prose: the first
// top-level object carrying at least one schema field with the right type
// wins. A reply that is exactly an empty object counts as "no changes".
func ParseReply(raw string) (*Set, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		var probe map[string]json.RawMessage
		dec := json.NewDecoder(strings.NewReader(raw[i:]))
		if err := dec.Decode(&probe); err != nil {
			continue
		}
		if set, ok := setFromFields(probe); ok {
			return set, nil
		}
		// Skip past this object so its nested objects are not taken for
		// top-level ones.
		i += int(dec.InputOffset()) - 1
	}

	if strings.TrimSpace(raw) == "{}" {
		return &Set{}, nil
	}
	return nil, ErrReplyNotJSON
}

// setFromFields builds a Set from a decoded top-level object, reporting
// whether the object matches the schema.
func setFromFields(fields map[string]json.RawMessage) (*Set, bool) {
	rawCreate, hasCreate := fields["create-or-update"]
	rawDelete, hasDelete := fields["delete"]
	if !hasCreate && !hasDelete {
		return nil, false
	}

	var create map[string]string
	if hasCreate {
		if err := json.Unmarshal(rawCreate, &create); err != nil {
			return nil, false
		}
	}
	var deletes []string
	if hasDelete {
		if err := json.Unmarshal(rawDelete, &deletes); err != nil {
			return nil, false
		}
	}

	set := &Set{}

	// Map order is not meaningful; sort for stable logging.
	var paths []string
	for p := range create {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		set.Changes = append(set.Changes, Change{Op: OpPut, Path: p, Contents: []byte(create[p])})
	}
	for _, p := range deletes {
		set.Changes = append(set.Changes, Change{Op: OpDelete, Path: p})
	}

	return set, true
}
