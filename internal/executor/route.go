package executor

import (
	"slices"

	"github.com/QwerMotion/the-Azathoth-project/internal/world"
)

// Route walks a private copy of a path with a cursor. Replacing the route
// swaps the copy and rewinds the cursor.
type Route struct {
	cells []world.Cell
	next  int
}

func NewRoute(p world.Path) *Route {
	return &Route{cells: slices.Clone(p)}
}

func (r *Route) Head() (world.Cell, bool) {
	if r.Done() {
		return world.Cell{}, false
	}
	return r.cells[r.next], true
}

func (r *Route) Advance() {
	if !r.Done() {
		r.next++
	}
}

func (r *Route) Replace(p world.Path) {
	r.cells = slices.Clone(p)
	r.next = 0
}

func (r *Route) Remaining() int { return len(r.cells) - r.next }

func (r *Route) Done() bool { return r.next >= len(r.cells) }

// Rest returns the cells not yet visited.
func (r *Route) Rest() world.Path {
	return slices.Clone(r.cells[r.next:])
}
