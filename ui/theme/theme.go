package theme

// Centralized palette and Tk style setup for the overlay and results windows.

import (
	"github.com/soocke/pixel-overlay-go/domain/geometry"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	ColorBg        = "#f7f9fb"
	ColorSurface   = "#ffffff"
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
	ColorStart     = "#16a34a" // "Start Detection"
	ColorStop      = "#dc2626" // "Stop Detection"
	ColorNeutral   = "#475569"

	// Overlay border feedback.
	ColorBorder       = "#ff0000"
	ColorBorderResize = "#ff8c00"
	ColorBorderMove   = "#2563eb"

	// The overlay interior is keyed out to show the screen beneath.
	ColorTransparent = "#010101"
)

// BorderWidth is the overlay window outline in pixels.
const BorderWidth = 2

// StyleStateLabel is the ttk style of the results window state label.
const StyleStateLabel = "state.TLabel"

// BorderColor returns the overlay outline color for a hovered or dragged
// edge. Moving the whole window is shown with moving=true.
func BorderColor(edge geometry.Edge, moving bool) string {
	switch {
	case edge != geometry.EdgeNone:
		return ColorBorderResize
	case moving:
		return ColorBorderMove
	default:
		return ColorBorder
	}
}

// DetectionButton returns the toggle caption and background for the current
// detection state.
func DetectionButton(active bool) (text, color string) {
	if active {
		return "Stop Detection", ColorStop
	}
	return "Start Detection", ColorStart
}

// InitStyles activates the base theme and configures the state label style.
// Must run on the Tk thread.
func InitStyles() {
	_ = ActivateTheme("azure light")
	App.Configure(Background(ColorBg))
	StyleConfigure(StyleStateLabel,
		Foreground(ColorText),
		Background(ColorSurface),
		Padding("4p 2p"),
		Borderwidth(1),
		Relief("groove"),
	)
}
