package models

const (
	DefaultColor       = "#999"
	MessagePlaceholder = "-"
)

// Palette lists the colors offered to participants.
var Palette = []string{"#f87171", "#facc15", "#4ade80", "#60a5fa", "#a78bfa", "#f472b6"}
