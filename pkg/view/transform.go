// Package view maps between screen pixels and diagram world coordinates.
package view

import (
	"math"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// Zoom limits and the step factor shared by the wheel and the zoom keys.
const (
	MinZoom   = 0.05
	MaxZoom   = 5.0
	WheelStep = 1.05
)

// Transform is the pan/zoom state of the canvas. Origin is the screen
// position of the canvas's top-left corner; Pan is in pixels.
type Transform struct {
	Pan    diagram.Point
	Zoom   float64
	Origin diagram.Point

	pinchZoom float64
	pinchDist float64
}

// New returns the identity transform.
func New() *Transform {
	return &Transform{Zoom: 1}
}

// ToWorld converts a screen position to world coordinates.
func (t *Transform) ToWorld(screen diagram.Point) diagram.Point {
	return diagram.Point{
		X: (screen.X - t.Origin.X - t.Pan.X) / t.Zoom,
		Y: (screen.Y - t.Origin.Y - t.Pan.Y) / t.Zoom,
	}
}

// ToScreen converts a world position to screen coordinates.
func (t *Transform) ToScreen(world diagram.Point) diagram.Point {
	return diagram.Point{
		X: world.X*t.Zoom + t.Pan.X + t.Origin.X,
		Y: world.Y*t.Zoom + t.Pan.Y + t.Origin.Y,
	}
}

// SetOrigin records the canvas origin on screen.
func (t *Transform) SetOrigin(p diagram.Point) {
	t.Origin = p
}

// PanBy translates the view by a screen-space delta.
func (t *Transform) PanBy(dx, dy float64) {
	t.Pan.X += dx
	t.Pan.Y += dy
}

// Wheel zooms one step around the cursor: negative deltaY zooms in,
// positive zooms out, zero does nothing. It reports whether the zoom
// changed.
func (t *Transform) Wheel(deltaY float64, cursor diagram.Point) bool {
	switch {
	case deltaY < 0:
		return t.zoomAround(t.Zoom*WheelStep, cursor)
	case deltaY > 0:
		return t.zoomAround(t.Zoom/WheelStep, cursor)
	}
	return false
}

// BeginPinch records the zoom and finger distance at the start of a
// two-finger gesture.
func (t *Transform) BeginPinch(a, b diagram.Point) {
	t.pinchZoom = t.Zoom
	t.pinchDist = a.Dist(b)
}

// Pinch sets zoom to the initial zoom scaled by the change in finger
// distance, keeping the midpoint between the fingers fixed.
func (t *Transform) Pinch(a, b diagram.Point) bool {
	if t.pinchDist == 0 {
		return false
	}
	target := t.pinchZoom * a.Dist(b) / t.pinchDist
	return t.zoomAround(target, diagram.Midpoint(a, b))
}

// ZoomIn zooms in one toolbar step.
func (t *Transform) ZoomIn() {
	t.Zoom = clampZoom(t.Zoom * WheelStep)
}

// ZoomOut zooms out one toolbar step.
func (t *Transform) ZoomOut() {
	t.Zoom = clampZoom(t.Zoom / WheelStep)
}

// ResetZoom sets zoom back to 1 without moving the pan.
func (t *Transform) ResetZoom() {
	t.Zoom = 1
}

// Reset restores zoom 1 and zero pan.
func (t *Transform) Reset() {
	t.Zoom = 1
	t.Pan = diagram.Point{}
}

// Percent returns the zoom as a rounded percentage.
func (t *Transform) Percent() int {
	return int(math.Round(t.Zoom * 100))
}

// zoomAround changes zoom while keeping the world point under anchor at
// the same screen position.
func (t *Transform) zoomAround(zoom float64, anchor diagram.Point) bool {
	zoom = clampZoom(zoom)
	if zoom == t.Zoom {
		return false
	}
	w := t.ToWorld(anchor)
	t.Zoom = zoom
	t.Pan.X = anchor.X - t.Origin.X - w.X*zoom
	t.Pan.Y = anchor.Y - t.Origin.Y - w.Y*zoom
	return true
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
