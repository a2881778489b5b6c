package diagram

import "testing"

func chain(t *testing.T) (*Graph, []*Node) {
	t.Helper()
	g := NewWithIDs(seqIDs())
	a := g.AddNode(NodeAttrs{X: 10, Y: 10, Label: "A", IsStart: true})
	b := g.AddNode(NodeAttrs{X: 900, Y: 40, Label: "B"})
	c := g.AddNode(NodeAttrs{X: 30, Y: 700, Label: "C"})
	d := g.AddNode(NodeAttrs{X: 500, Y: 500, Label: "D"})
	g.AddLink(a.ID, b.ID)
	g.AddLink(b.ID, c.ID)
	return g, []*Node{a, b, c, d}
}

func TestArrangeLayered(t *testing.T) {
	g, n := chain(t)
	loop := g.AddLink(n[0].ID, n[0].ID)
	offset := loop.Control.Sub(n[0].Center())

	g.Arrange(LayoutLayered)

	want := []Point{{200, 300}, {450, 300}, {700, 300}, {950, 300}}
	for i, p := range want {
		if n[i].Center() != p {
			t.Errorf("Expected %s at %v, got %v", n[i].Label, p, n[i].Center())
		}
	}
	for _, l := range g.Links() {
		if l.IsSelfLoop() {
			continue
		}
		if !g.IsStraight(l) {
			t.Errorf("Expected link %s to be straightened", l.ID)
		}
	}
	if got := loop.Control.Sub(n[0].Center()); got != offset {
		t.Errorf("Expected self-loop offset %v, got %v", offset, got)
	}
}

func TestArrangeLayeredBranches(t *testing.T) {
	g := NewWithIDs(seqIDs())
	a := g.AddNode(NodeAttrs{Label: "A", IsStart: true})
	b := g.AddNode(NodeAttrs{Label: "B"})
	c := g.AddNode(NodeAttrs{Label: "C"})
	g.AddLink(a.ID, b.ID)
	g.AddLink(a.ID, c.ID)

	g.Arrange(LayoutLayered)

	if b.Center() != (Point{450, 210}) || c.Center() != (Point{450, 390}) {
		t.Errorf("Expected B and C stacked in the second column, got %v and %v", b.Center(), c.Center())
	}
}

func TestArrangeGrid(t *testing.T) {
	g, n := chain(t)
	g.Arrange(LayoutGrid)

	want := []Point{{200, 200}, {450, 200}, {200, 380}, {450, 380}}
	for i, p := range want {
		if n[i].Center() != p {
			t.Errorf("Expected %s at %v, got %v", n[i].Label, p, n[i].Center())
		}
	}
}

func TestArrangeCircle(t *testing.T) {
	g, n := chain(t)
	g.Arrange(LayoutCircle)

	// Radius is LayerGap for four default-size nodes.
	top := Point{450, 200}
	if !approx(n[0].X, top.X) || !approx(n[0].Y, top.Y) {
		t.Errorf("Expected start node at top %v, got %v", top, n[0].Center())
	}
	right := Point{700, 450}
	if !approx(n[1].X, right.X) || !approx(n[1].Y, right.Y) {
		t.Errorf("Expected second node at %v, got %v", right, n[1].Center())
	}
}

func TestArrangeWithoutStartNode(t *testing.T) {
	g := NewWithIDs(seqIDs())
	a := g.AddNode(NodeAttrs{Label: "A"})
	b := g.AddNode(NodeAttrs{Label: "B"})
	g.AddLink(b.ID, a.ID)

	g.Arrange(LayoutLayered)

	// A roots the walk; B is unreached and gets the next column.
	if a.X != 200 || b.X != 450 {
		t.Errorf("Expected A then B, got A.X=%v B.X=%v", a.X, b.X)
	}
}

func TestArrangeEmpty(t *testing.T) {
	g := New()
	g.Arrange(LayoutCircle)
	if g.NodeCount() != 0 {
		t.Error("Expected empty graph to stay empty")
	}
}

func TestParseLayout(t *testing.T) {
	for _, name := range []string{"layered", "Grid", "CIRCLE"} {
		l, err := ParseLayout(name)
		if err != nil {
			t.Errorf("ParseLayout(%q): unexpected error %v", name, err)
		}
		if l.String() == "unknown" {
			t.Errorf("ParseLayout(%q): got unknown layout", name)
		}
	}
	if _, err := ParseLayout("spiral"); err == nil {
		t.Error("Expected error for unknown layout")
	}
}
