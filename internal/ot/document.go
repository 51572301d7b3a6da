package ot

import "sync"

// Document is one participant's copy of the shared buffer together with the
// local operations the other side may not have seen yet.
type Document struct {
	mu      sync.Mutex
	text    string
	pending []Operation
}

// NewDocument returns a document holding text with nothing pending.
func NewDocument(text string) *Document {
	return &Document{text: text}
}

// Text returns the current buffer.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Pending returns the number of unacknowledged local operations.
func (d *Document) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// ApplyLocal applies an edit made by this participant and queues it.
func (d *Document) ApplyLocal(op Operation) error {
	if !Validate(op) {
		return ErrInvalidOperation
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = Apply(d.text, op)
	d.pending = append(d.pending, op)
	return nil
}

// ApplyRemote transforms op against every pending local operation stamped
// earlier than op and applies the result. Invalid operations are dropped and
// reported; the buffer is left untouched.
func (d *Document) ApplyRemote(op Operation) (Operation, error) {
	if !Validate(op) {
		return Operation{}, ErrInvalidOperation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	transformed := op
	for _, local := range d.pending {
		if local.Timestamp < op.Timestamp {
			transformed = Transform(transformed, local)
		}
	}
	if transformed.Kind != KindNoop {
		d.text = Apply(d.text, transformed)
	}
	return transformed, nil
}

// Acknowledge drops pending operations stamped at or before upTo.
func (d *Document) Acknowledge(upTo int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.pending[:0]
	for _, op := range d.pending {
		if op.Timestamp > upTo {
			kept = append(kept, op)
		}
	}
	d.pending = kept
}

// Reset replaces the buffer with a full snapshot and clears pending work.
func (d *Document) Reset(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.pending = nil
}
