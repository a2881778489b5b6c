// Package history implements snapshot undo/redo over a diagram graph.
//
// An action is bracketed by Record (snapshot before) and Commit (push the
// snapshot if the graph actually changed). Undo and Redo swap whole-graph
// snapshots in place.
package history

import "github.com/ha1tch/fsm-designer/pkg/diagram"

// DefaultLimit is the number of undo levels kept.
const DefaultLimit = 50

// Manager holds the past and future snapshot stacks.
type Manager struct {
	limit   int
	past    []*diagram.Graph
	future  []*diagram.Graph
	pending *diagram.Graph
}

// New creates a manager keeping at most limit undo levels. A limit of
// zero or less means DefaultLimit.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Record snapshots g as the state before an action. A later Record
// replaces an uncommitted one.
func (m *Manager) Record(g *diagram.Graph) {
	m.pending = g.Clone()
}

// Commit pushes the recorded snapshot if g differs from it. It reports
// whether an entry was pushed. Commit without a prior Record is a no-op.
func (m *Manager) Commit(g *diagram.Graph) bool {
	before := m.pending
	m.pending = nil
	if before == nil || before.Equal(g) {
		return false
	}
	m.pushPast(before)
	m.future = nil
	return true
}

// Undo restores the most recent snapshot into g. The current state moves
// to the redo stack.
func (m *Manager) Undo(g *diagram.Graph) bool {
	if len(m.past) == 0 {
		return false
	}
	m.pending = nil

	snap := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, g.Clone())
	g.Restore(snap)
	return true
}

// Redo re-applies the most recently undone state into g.
func (m *Manager) Redo(g *diagram.Graph) bool {
	if len(m.future) == 0 {
		return false
	}
	m.pending = nil

	snap := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.pushPast(g.Clone())
	g.Restore(snap)
	return true
}

// CanUndo reports whether Undo would do anything.
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether Redo would do anything.
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) {
	return len(m.past), len(m.future)
}

// Clear drops all history.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
	m.pending = nil
}

func (m *Manager) pushPast(g *diagram.Graph) {
	m.past = append(m.past, g)
	if len(m.past) > m.limit {
		m.past = m.past[len(m.past)-m.limit:]
	}
}
