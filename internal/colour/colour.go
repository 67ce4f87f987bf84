// Package colour defines the CheerLights colour palette.
package colour

import "fmt"

// Colour is one of the colours recognised by the CheerLights service.
// The value is the 24-bit RGB code the service maps the name to.
type Colour uint32

const (
	Red     Colour = 0xFF0000
	Green   Colour = 0x008000
	Blue    Colour = 0x0000FF
	Cyan    Colour = 0x00FFFF
	White   Colour = 0xFFFFFF
	OldLace Colour = 0xFDF5E6
	Purple  Colour = 0x800080
	Magenta Colour = 0xFF00FF
	Yellow  Colour = 0xFFFF00
	Orange  Colour = 0xFFA500
	Pink    Colour = 0xFFC0CB
)

// palette maps canonical lowercase names to colours, in service order.
var palette = []struct {
	name string
	c    Colour
}{
	{"red", Red},
	{"green", Green},
	{"blue", Blue},
	{"cyan", Cyan},
	{"white", White},
	{"oldlace", OldLace},
	{"purple", Purple},
	{"magenta", Magenta},
	{"yellow", Yellow},
	{"orange", Orange},
	{"pink", Pink},
}

// InvalidColourError reports a name that is not in the palette.
type InvalidColourError struct {
	Name string
}

func (e *InvalidColourError) Error() string {
	return fmt.Sprintf("%q is not a recognised cheerlights colour", e.Name)
}

// Parse returns the colour for a canonical lowercase palette name.
// Matching is exact: "RED" or "Red" are rejected, only "red" is accepted.
func Parse(name string) (Colour, error) {
	for _, p := range palette {
		if p.name == name {
			return p.c, nil
		}
	}
	return 0, &InvalidColourError{Name: name}
}

// String returns the canonical lowercase name of the colour.
func (c Colour) String() string {
	for _, p := range palette {
		if p.c == c {
			return p.name
		}
	}
	return fmt.Sprintf("colour(%#06x)", uint32(c))
}

// RGB returns the 24-bit RGB value of the colour.
func (c Colour) RGB() uint32 {
	return uint32(c)
}

// Names returns the canonical palette names in service order.
func Names() []string {
	names := make([]string, len(palette))
	for i, p := range palette {
		names[i] = p.name
	}
	return names
}

// All returns every palette colour in service order.
func All() []Colour {
	colours := make([]Colour, len(palette))
	for i, p := range palette {
		colours[i] = p.c
	}
	return colours
}
