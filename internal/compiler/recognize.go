package compiler

import (
	"github.com/roach88/persistsql/internal/syntax"
)

// Child entry counts of a resource access accepted as a persist call:
// "client->/path(args)" and "client->/path.get(args)".
const (
	entriesWithoutMethod = 5
	entriesWithMethod    = 7
)

const getMethod = "get"

// Recognize reports whether a from clause iterates over a persist client
// resource call and returns the seeded Query.
//
// The source must itself be a resource access whose client is a simple name reference. The access must have exactly 5
// child entries (no method) or 7 (explicit method), and an explicit method
// must be "get". Whether the name is actually a persist client is decided
// later against the catalog.
func Recognize(from *syntax.FromClause) (*Query, bool) {
	if from == nil {
		return nil, false
	}
	// A check or checkpanic wrapper hides the access and is not accepted.
	access, ok := from.Source.(*syntax.ResourceAccess)
	if !ok {
		return nil, false
	}
	client, ok := access.Client.(*syntax.NameRef)
	if !ok || client.Qualified() {
		return nil, false
	}

	switch access.ChildEntries() {
	case entriesWithoutMethod, entriesWithMethod:
	default:
		return nil, false
	}
	if access.Method != "" && access.Method != getMethod {
		return nil, false
	}

	q := &Query{
		Access: access,
		Client: client.Ident(),
		Path:   access.Path,
	}
	if access.Args != nil {
		q.Args = access.Args.Args
	}
	return q, true
}
