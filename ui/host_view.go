package ui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

type HostRow struct {
	Name        string
	StatusLabel string
	Loading     bool
	Failed      bool
	Expanded    bool
}

type RepoRow struct {
	Name   string
	Cloned bool
	Href   string
}

// HostEntry pairs a host row with the repo rows rendered beneath it.
// Repos is empty for every collapsed host.
type HostEntry struct {
	Host  HostRow
	Repos []RepoRow
}

// RowRef addresses one visible row. RepoIndex is -1 for the host line itself.
type RowRef struct {
	HostIndex int
	RepoIndex int
}

const (
	hostNameWidth = 36
	repoNameWidth = 48
)

// FlattenRows lists every visible row in render order so cursor movement in
// the model and row placement in RenderHostTree always agree.
func FlattenRows(entries []HostEntry) []RowRef {
	refs := make([]RowRef, 0, len(entries))
	for i, entry := range entries {
		refs = append(refs, RowRef{HostIndex: i, RepoIndex: -1})
		for j := range entry.Repos {
			refs = append(refs, RowRef{HostIndex: i, RepoIndex: j})
		}
	}
	return refs
}

func RenderHostTree(entries []HostEntry, cursor int, loadingGlyph string, styles Styles) string {
	var b strings.Builder
	header := PadOrTrim("Host", hostNameWidth) + " " + "Repos"
	b.WriteString(styles.Header("  " + header))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString("  ")
		b.WriteString(styles.Disabled("No hosts."))
		b.WriteString("\n")
		return b.String()
	}
	row := 0
	for _, entry := range entries {
		line := formatHostLine(entry.Host, loadingGlyph)
		rowStyle := styles.Normal
		rowSelectedStyle := styles.Selected
		if entry.Host.Failed {
			rowStyle = styles.Disabled
			rowSelectedStyle = styles.DisabledSelected
		}
		if row == cursor {
			b.WriteString("  " + rowSelectedStyle(line))
		} else {
			b.WriteString("  " + rowStyle(line))
		}
		b.WriteString("\n")
		row++
		for _, repo := range entry.Repos {
			b.WriteString(renderRepoLine(repo, row == cursor, styles))
			b.WriteString("\n")
			row++
		}
	}
	return b.String()
}

func formatHostLine(row HostRow, loadingGlyph string) string {
	marker := "▸"
	if row.Expanded {
		marker = "▾"
	}
	status := row.StatusLabel
	if row.Loading {
		status = strings.TrimSpace(loadingGlyph + " " + status)
	}
	return marker + " " + PadOrTrim(row.Name, hostNameWidth-2) + " " + status
}

func renderRepoLine(repo RepoRow, selected bool, styles Styles) string {
	marker := "·"
	if repo.Cloned {
		marker = "✓"
	}
	line := marker + " " + repo.Name
	var rendered string
	switch {
	case selected:
		rendered = "    " + styles.Selected(line)
	case repo.Cloned:
		rendered = "    " + styles.Secondary(line)
	default:
		rendered = "    " + styles.Normal(line)
	}
	if repo.Href != "" {
		rendered = termenv.Hyperlink(repo.Href, rendered)
	}
	return rendered
}

func BuildHostRow(name string, loading bool, loaded bool, failed bool, repoCount int, errorMessage string, expanded bool) HostRow {
	row := HostRow{Name: name, Loading: loading, Failed: failed, Expanded: expanded}
	switch {
	case failed:
		row.StatusLabel = strings.TrimSpace(errorMessage)
	case loaded:
		row.StatusLabel = formatRepoCount(repoCount)
	}
	return row
}

func formatRepoCount(n int) string {
	if n == 1 {
		return "1 repo"
	}
	return fmt.Sprintf("%d repos", n)
}

type SearchRow struct {
	RepoName string
	Host     string
	Cloned   bool
	Href     string
}

func RenderSearchResults(rows []SearchRow, cursor int, query string, styles Styles) string {
	var b strings.Builder
	header := PadOrTrim("Repo", repoNameWidth) + " " + PadOrTrim("Host", hostNameWidth) + " " + "Cloned"
	b.WriteString(styles.Header("  " + header))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString("  ")
		if strings.TrimSpace(query) == "" {
			b.WriteString(styles.Disabled("Type to search repos."))
		} else {
			b.WriteString(styles.Disabled("No matches."))
		}
		b.WriteString("\n")
		return b.String()
	}
	for i, row := range rows {
		cloned := "·"
		if row.Cloned {
			cloned = "✓"
		}
		line := PadOrTrim(row.RepoName, repoNameWidth) + " " + PadOrTrim(row.Host, hostNameWidth) + " " + cloned
		var rendered string
		if i == cursor {
			rendered = "  " + styles.Selected(line)
		} else {
			rendered = "  " + styles.Normal(line)
		}
		if row.Href != "" {
			rendered = termenv.Hyperlink(row.Href, rendered)
		}
		b.WriteString(rendered)
		b.WriteString("\n")
	}
	return b.String()
}
