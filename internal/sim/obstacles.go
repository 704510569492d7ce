package sim

// Rect is one axis-aligned blocking obstacle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectMask is a static obstacle set implementing CollisionMask. Half pads
// every obstacle by the actor's half-size so bodies stop at walls instead
// of sinking into them.
type RectMask struct {
	Rects []Rect
	Half  float64
}

// CanMove reports whether the destination keeps clear of every obstacle.
func (m RectMask) CanMove(x0, y0, x1, y1 float64) bool {
	for _, r := range m.Rects {
		if x1 > r.X-m.Half && x1 < r.X+r.Width+m.Half &&
			y1 > r.Y-m.Half && y1 < r.Y+r.Height+m.Half {
			return false
		}
	}
	return true
}
