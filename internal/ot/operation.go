// Package ot implements the operational transformation rules shared by every
// participant of a room. The broker never applies them itself; endpoints use
// them to reconcile remote edits against their own unacknowledged edits.
package ot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Kind identifies what an operation does to the buffer.
type Kind string

const (
	KindInsert  Kind = "insert"
	KindDelete  Kind = "delete"
	KindReplace Kind = "replace"
	KindNoop    Kind = "noop"
)

// maxPosition bounds positions accepted from the wire.
const maxPosition = math.MaxInt32

// ErrInvalidOperation is returned when an operation fails structural validation.
var ErrInvalidOperation = errors.New("invalid operation")

// Operation is a single edit against a text buffer. Positions and text lengths
// are counted in Unicode code points.
//
// Insert and delete carry their text in Content. Replace carries the inserted
// text in Content and the removed text in Removed.
type Operation struct {
	Kind      Kind   `json:"type"`
	Position  int    `json:"position"`
	Content   string `json:"content"`
	Removed   string `json:"removed,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
}

// Validate reports whether op is structurally usable.
func Validate(op Operation) bool {
	if op.Position < 0 || op.Position > maxPosition {
		return false
	}
	switch op.Kind {
	case KindInsert, KindDelete, KindReplace, KindNoop:
		return true
	default:
		return false
	}
}

// Parse decodes a wire operation and checks the fields required by its kind.
// Every failure wraps ErrInvalidOperation.
func Parse(raw []byte) (Operation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Operation{}, fmt.Errorf("%w: not an object", ErrInvalidOperation)
	}

	kind, ok := stringField(fields, "type")
	if !ok {
		return Operation{}, fmt.Errorf("%w: missing type", ErrInvalidOperation)
	}
	pos, ok := numberField(fields, "position")
	if !ok {
		return Operation{}, fmt.Errorf("%w: missing position", ErrInvalidOperation)
	}
	if pos < 0 || pos > maxPosition || pos != math.Trunc(pos) {
		return Operation{}, fmt.Errorf("%w: position %v out of range", ErrInvalidOperation, pos)
	}

	op := Operation{Kind: Kind(kind), Position: int(pos)}
	switch op.Kind {
	case KindInsert, KindDelete:
		if op.Content, ok = stringField(fields, "content"); !ok {
			return Operation{}, fmt.Errorf("%w: %s requires content", ErrInvalidOperation, op.Kind)
		}
	case KindReplace:
		if op.Content, ok = stringField(fields, "content"); !ok {
			return Operation{}, fmt.Errorf("%w: replace requires content", ErrInvalidOperation)
		}
		if op.Removed, ok = stringField(fields, "removed"); !ok {
			return Operation{}, fmt.Errorf("%w: replace requires removed", ErrInvalidOperation)
		}
	case KindNoop:
	default:
		return Operation{}, fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, kind)
	}

	if ts, ok := numberField(fields, "timestamp"); ok {
		op.Timestamp = int64(ts)
	}
	op.ClientID, _ = stringField(fields, "client_id")

	if !Validate(op) {
		return Operation{}, ErrInvalidOperation
	}
	return op, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func numberField(fields map[string]json.RawMessage, name string) (float64, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}
