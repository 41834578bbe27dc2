package main

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmClearCache
)

const confirmFieldKey = "confirm_result"

// hqxHuhTheme restyles the charm theme so form buttons use the hqx accent.
func hqxHuhTheme() *huh.Theme {
	theme := *huh.ThemeCharm()
	accent := lipgloss.Color("#7D56F4")
	theme.Focused.FocusedButton = theme.Focused.FocusedButton.Background(accent)
	theme.Focused.Next = theme.Focused.FocusedButton
	return &theme
}

func newConfirmForm(title string, description string, result *bool) *huh.Form {
	field := huh.NewConfirm().
		Key(confirmFieldKey).
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(result)
	form := huh.NewForm(huh.NewGroup(field))
	return form.WithTheme(hqxHuhTheme()).WithShowHelp(false)
}
