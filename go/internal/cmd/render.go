package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/room"
)

const barWidth = 20

// render draws one frame of the room.
func render(w io.Writer, v room.View, redraw bool) {
	var b strings.Builder
	if redraw {
		b.WriteString("\033[H\033[2J")
	}

	fmt.Fprintf(&b, "%s  (room %s)\n\n", v.Title, v.RoomID)
	if len(v.Entries) == 0 {
		b.WriteString("  nobody here yet\n")
	}
	for _, e := range v.Entries {
		name := e.Status.UserID
		if name == v.Self.UserID {
			name += " (you)"
		}
		fmt.Fprintf(&b, "  %s %-18s %s %s  %s\n",
			swatch(e.Color),
			name,
			formatRemaining(e.RemainingSec, e.Status.Running()),
			progressBar(e.PercentElapsed),
			e.Message,
		)
	}

	b.WriteString("\n")
	if v.Self.UserID == "" {
		b.WriteString("set a nickname to appear in the room: nick <name>\n")
	}
	b.WriteString("> ")
	_, _ = io.WriteString(w, b.String())
}

func formatRemaining(sec int64, running bool) string {
	if !running {
		return "  idle"
	}
	return fmt.Sprintf("%3d:%02d", sec/60, sec%60)
}

func progressBar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

// swatch renders a 24-bit color block for #rgb and #rrggbb colors.
func swatch(color string) string {
	r, g, b, ok := parseHex(color)
	if !ok {
		r, g, b, _ = parseHex(models.DefaultColor)
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm●\033[0m", r, g, b)
}

func parseHex(color string) (int, int, int, bool) {
	var r, g, b int
	switch len(color) {
	case 4:
		if _, err := fmt.Sscanf(color, "#%1x%1x%1x", &r, &g, &b); err != nil {
			return 0, 0, 0, false
		}
		return r * 17, g * 17, b * 17, true
	case 7:
		if _, err := fmt.Sscanf(color, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return 0, 0, 0, false
		}
		return r, g, b, true
	}
	return 0, 0, 0, false
}
