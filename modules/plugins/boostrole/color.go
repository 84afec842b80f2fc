package boostrole

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// ErrInvalidColor means the color spec is neither a known name nor #RRGGBB
var ErrInvalidColor = errors.New("invalid color")

// colorNames maps the color names we accept to their hex value
var colorNames = map[string]string{
	"default":   "#99aab5",
	"white":     "#ffffff",
	"black":     "#000000",
	"red":       "#ed4245",
	"darkred":   "#992d22",
	"green":     "#57f287",
	"darkgreen": "#1f8b4c",
	"blue":      "#3498db",
	"darkblue":  "#206694",
	"yellow":    "#fee75c",
	"gold":      "#f1c40f",
	"orange":    "#e67e22",
	"purple":    "#9b59b6",
	"magenta":   "#e91e63",
	"fuchsia":   "#eb459e",
	"pink":      "#ffc0cb",
	"teal":      "#1abc9c",
	"cyan":      "#00ffff",
	"navy":      "#34495e",
	"grey":      "#95a5a6",
	"gray":      "#95a5a6",
	"darkgrey":  "#607d8b",
	"brown":     "#a84300",
	"blurple":   "#5865f2",
}

// ResolveColor turns a color name or #RRGGBB spec into the color int discord expects
func ResolveColor(spec string) (int, error) {
	text := strings.ToLower(strings.TrimSpace(spec))
	if text == "" {
		return 0, ErrInvalidColor
	}

	if hex, ok := colorNames[text]; ok {
		text = hex
	}

	if !strings.HasPrefix(text, "#") {
		text = "#" + text
	}

	color, err := colorful.Hex(text)
	if err != nil {
		return 0, ErrInvalidColor
	}

	r, g, b := color.RGB255()
	return int(r)<<16 | int(g)<<8 | int(b), nil
}

// HexFromColor is the inverse of ResolveColor, discord color int to #rrggbb
func HexFromColor(value int) string {
	color := colorful.Color{
		R: float64((value>>16)&0xff) / 255.0,
		G: float64((value>>8)&0xff) / 255.0,
		B: float64(value&0xff) / 255.0,
	}

	return color.Hex()
}
