package history

import "github.com/matzehuels/flowsync/pkg/flow"

// History holds the undo and redo stacks. It is not safe for concurrent
// use; the sync engine serializes access behind its own lock.
type History struct {
	undo []Command
	redo []Command
	max  int
}

// DefaultLimit bounds the undo stack. Old entries fall off the bottom
// once the limit is reached.
const DefaultLimit = 100

// New creates an empty history. A limit of zero or less means unbounded.
func New(limit int) *History {
	return &History{max: limit}
}

// Execute applies the command to the model and, on success, pushes it
// onto the undo stack and discards any redoable commands.
func (h *History) Execute(m *flow.Model, c Command) error {
	if err := c.Apply(m); err != nil {
		return err
	}
	h.undo = append(h.undo, c)
	if h.max > 0 && len(h.undo) > h.max {
		h.undo = h.undo[1:]
	}
	h.redo = nil
	return nil
}

// Undo reverts the most recent command. It reports false when the undo
// stack is empty or the revert fails.
func (h *History) Undo(m *flow.Model) bool {
	if len(h.undo) == 0 {
		return false
	}
	c := h.undo[len(h.undo)-1]
	if err := c.Revert(m); err != nil {
		return false
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, c)
	return true
}

// Redo re-applies the most recently undone command. It reports false
// when the redo stack is empty or the apply fails.
func (h *History) Redo(m *flow.Model) bool {
	if len(h.redo) == 0 {
		return false
	}
	c := h.redo[len(h.redo)-1]
	if err := c.Apply(m); err != nil {
		return false
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, c)
	return true
}

// CanUndo reports whether an undoable command exists.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redoable command exists.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks. The sync engine calls this when external text
// replaces the model wholesale.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
