package ui

import "strings"

// Styles carries the render functions applied to already-padded cells.
// Padding always happens on plain text so ANSI sequences never skew widths.
type Styles struct {
	Header           func(string) string
	Normal           func(string) string
	Selected         func(string) string
	Disabled         func(string) string
	DisabledSelected func(string) string
	Secondary        func(string) string
	Error            func(string) string
}

// PlainStyles returns pass-through styles for tests and non-TTY output.
func PlainStyles() Styles {
	identity := func(s string) string { return s }
	return Styles{
		Header:           identity,
		Normal:           identity,
		Selected:         identity,
		Disabled:         identity,
		DisabledSelected: identity,
		Secondary:        identity,
		Error:            identity,
	}
}

func PadOrTrim(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) == width {
		return s
	}
	if len(runes) < width {
		return s + strings.Repeat(" ", width-len(runes))
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}
