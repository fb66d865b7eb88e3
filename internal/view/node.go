// Package view describes what a component looks like. Components build trees
// of Node values in View; renderers in ui/ turn them into output. A tree is
// immutable once published.
package view

import "fmt"

// Kind enumerates the node types a renderer must handle.
type Kind uint8

const (
	KindText Kind = iota
	KindButton
	KindBox
	KindCard
	KindEmbed
	KindSpinner
	KindChart
	KindProgress
	KindSpacer
)

var kindNames = [...]string{
	KindText:     "text",
	KindButton:   "button",
	KindBox:      "box",
	KindCard:     "card",
	KindEmbed:    "embed",
	KindSpinner:  "spinner",
	KindChart:    "chart",
	KindProgress: "progress",
	KindSpacer:   "spacer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Node is one element of a view tree. The set of implementations is closed.
type Node interface {
	Kind() Kind
	node()
}

// Tone selects the theme style a renderer applies to text.
type Tone uint8

const (
	ToneNormal Tone = iota
	ToneTitle
	ToneMuted
	ToneOK
	ToneWarn
	ToneCrit
)

// Text is a run of text.
type Text struct {
	Content string
	Tone    Tone
}

// Button is a pressable label. ID must be unique within a rendered tree; it
// is used for focus and mouse hit-testing.
type Button struct {
	ID       string
	Label    string
	Disabled bool
	OnPress  func()
}

// Axis is the layout direction of a Box.
type Axis uint8

const (
	Column Axis = iota
	Row
)

// Box lays out its children along an axis.
type Box struct {
	Axis     Axis
	Gap      int
	Children []Node
}

// Card frames a child with a border and an optional title.
type Card struct {
	Title string
	Child Node
}

// Embed places the live view of another component.
type Embed struct {
	Root *Root
}

// Spinner shows activity. Frame selects the animation frame.
type Spinner struct {
	Label  string
	Active bool
	Frame  int
}

// Chart is a line chart over Series, scaled to [Min, Max].
type Chart struct {
	Title  string
	Series []float64
	Min    float64
	Max    float64
	Width  int
	Height int
}

// Progress is a bar filled to Value, clamped to [0, 1].
type Progress struct {
	Label string
	Value float64
	Width int
}

// Spacer inserts empty space along the parent's axis.
type Spacer struct {
	Size int
}

func (Text) Kind() Kind     { return KindText }
func (Button) Kind() Kind   { return KindButton }
func (Box) Kind() Kind      { return KindBox }
func (Card) Kind() Kind     { return KindCard }
func (Embed) Kind() Kind    { return KindEmbed }
func (Spinner) Kind() Kind  { return KindSpinner }
func (Chart) Kind() Kind    { return KindChart }
func (Progress) Kind() Kind { return KindProgress }
func (Spacer) Kind() Kind   { return KindSpacer }

func (Text) node()     {}
func (Button) node()   {}
func (Box) node()      {}
func (Card) node()     {}
func (Embed) node()    {}
func (Spinner) node()  {}
func (Chart) node()    {}
func (Progress) node() {}
func (Spacer) node()   {}

// Pressable is implemented by nodes that react to activation.
type Pressable interface {
	Node
	PressID() string
	Press()
}

func (b Button) PressID() string { return b.ID }

// Press invokes OnPress unless the button is disabled.
func (b Button) Press() {
	if b.Disabled || b.OnPress == nil {
		return
	}
	b.OnPress()
}

// Label is shorthand for a plain Text node.
func Label(format string, args ...any) Text {
	if len(args) == 0 {
		return Text{Content: format}
	}
	return Text{Content: fmt.Sprintf(format, args...)}
}

// VStack lays children out top to bottom.
func VStack(gap int, children ...Node) Box {
	return Box{Axis: Column, Gap: gap, Children: children}
}

// HStack lays children out left to right.
func HStack(gap int, children ...Node) Box {
	return Box{Axis: Row, Gap: gap, Children: children}
}

// Clamp returns p.Value limited to [0, 1].
func (p Progress) Clamp() float64 {
	switch {
	case p.Value < 0:
		return 0
	case p.Value > 1:
		return 1
	}
	return p.Value
}
