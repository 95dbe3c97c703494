// internal/escpos/command.go
package escpos

import (
	"fmt"
	"strings"
)

// Directive is a named printer formatting command
type Directive int

const (
	LineFeed Directive = iota
	FontBold
	FontNormal
	EmphasizeOn
	EmphasizeOff
	Underline
	Cut
	AlignLeft
	AlignCenter
	AlignRight
	FontA
	FontB
	DoubleHeightOn
	DoubleHeightOff
	DoubleWidthOn
	DoubleWidthOff
	UpsideDownOn
	UpsideDownOff
)

// commandTable maps every directive to its ESC/POS sequence.
// DoubleHeightOff and DoubleWidthOff share ESC ! 0: both flags live in the
// same print mode byte.
var commandTable = map[Directive][]byte{
	LineFeed: {0x0A}, // LF

	// Emphasis
	FontBold:     {0x1B, 0x45, 0x01}, // ESC E 1
	FontNormal:   {0x1B, 0x45, 0x00}, // ESC E 0
	EmphasizeOn:  {0x1B, 0x45, 0x01}, // ESC E 1
	EmphasizeOff: {0x1B, 0x45, 0x00}, // ESC E 0
	Underline:    {0x1B, 0x2D, 0x01}, // ESC - 1

	// Cutting
	Cut: {0x1D, 0x56, 0x00}, // GS V 0

	// Alignment
	AlignLeft:   {0x1B, 0x61, 0x00}, // ESC a 0
	AlignCenter: {0x1B, 0x61, 0x01}, // ESC a 1
	AlignRight:  {0x1B, 0x61, 0x02}, // ESC a 2

	// Character font
	FontA: {0x1B, 0x4D, 0x00}, // ESC M 0
	FontB: {0x1B, 0x4D, 0x01}, // ESC M 1

	// Print mode
	DoubleHeightOn:  {0x1B, 0x21, 0x10}, // ESC ! 16
	DoubleHeightOff: {0x1B, 0x21, 0x00}, // ESC ! 0
	DoubleWidthOn:   {0x1B, 0x21, 0x20}, // ESC ! 32
	DoubleWidthOff:  {0x1B, 0x21, 0x00}, // ESC ! 0

	// Rotation
	UpsideDownOn:  {0x1B, 0x7B, 0x01}, // ESC { 1
	UpsideDownOff: {0x1B, 0x7B, 0x00}, // ESC { 0
}

var directiveNames = map[Directive]string{
	LineFeed:        "line_feed",
	FontBold:        "font_bold",
	FontNormal:      "font_normal",
	EmphasizeOn:     "emphasize_on",
	EmphasizeOff:    "emphasize_off",
	Underline:       "underline",
	Cut:             "cut",
	AlignLeft:       "align_left",
	AlignCenter:     "align_center",
	AlignRight:      "align_right",
	FontA:           "font_a",
	FontB:           "font_b",
	DoubleHeightOn:  "double_height_on",
	DoubleHeightOff: "double_height_off",
	DoubleWidthOn:   "double_width_on",
	DoubleWidthOff:  "double_width_off",
	UpsideDownOn:    "upside_down_on",
	UpsideDownOff:   "upside_down_off",
}

// Directives returns every known directive in declaration order
func Directives() []Directive {
	out := make([]Directive, 0, len(commandTable))
	for d := LineFeed; d <= UpsideDownOff; d++ {
		out = append(out, d)
	}
	return out
}

// Encode returns a copy of the byte sequence for d. Unknown values encode
// to nil.
func Encode(d Directive) []byte {
	seq, ok := commandTable[d]
	if !ok {
		return nil
	}
	out := make([]byte, len(seq))
	copy(out, seq)
	return out
}

func (d Directive) String() string {
	if name, ok := directiveNames[d]; ok {
		return name
	}
	return fmt.Sprintf("directive(%d)", int(d))
}

// ParseDirective resolves a snake_case directive name
func ParseDirective(name string) (Directive, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for d, n := range directiveNames {
		if n == key {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown directive: %q", name)
}
