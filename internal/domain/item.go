package domain

// ItemKind distinguishes the two kinds of canvas notes.
type ItemKind string

const (
	ItemText  ItemKind = "text"
	ItemImage ItemKind = "image"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == ItemText || k == ItemImage
}

// Point is a location in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a screen bounding rectangle as reported by the client.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// CanvasItem is a positioned, resizable note on the canvas. Content holds the
// text of a text note or the base64 payload of an image.
type CanvasItem struct {
	ID       string   `json:"id"`
	Kind     ItemKind `json:"type"`
	Content  string   `json:"content"`
	MimeType string   `json:"mimeType,omitempty"`
	Position Point    `json:"position"`
	Size     Size     `json:"size"`
}
