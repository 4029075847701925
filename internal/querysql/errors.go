package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/persistsql/internal/syntax"
)

// ErrNotSupported is the sentinel wrapped by every NotSupportedError.
var ErrNotSupported = errors.New("not supported")

// NotSupportedError reports a clause construct outside the compilable
// subset. The query it belongs to is left untouched.
type NotSupportedError struct {
	Clause string      // "where", "order by", "group by", "limit"
	Node   syntax.Node // offending node, may be nil
	Reason string
}

func (e *NotSupportedError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s clause: %s", e.Clause, e.Reason)
	}
	return fmt.Sprintf("%s: %s clause: %s: %s", e.Node.Pos(), e.Clause, e.Reason, syntax.Source(e.Node))
}

// Unwrap lets errors.Is match ErrNotSupported.
func (e *NotSupportedError) Unwrap() error {
	return ErrNotSupported
}

func notSupported(clause string, n syntax.Node, format string, args ...any) error {
	return &NotSupportedError{Clause: clause, Node: n, Reason: fmt.Sprintf(format, args...)}
}
