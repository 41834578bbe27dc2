package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	zshCompletionBlockStart = "# >>> hqx completion >>>"
	zshCompletionBlockEnd   = "# <<< hqx completion <<<"
)

type zshCompletionStatus struct {
	Installed  bool
	Enabled    bool
	ScriptPath string
	ZshrcPath  string
}

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Manage shell completion",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCompletionStatus()
		},
	}
	cmd.AddCommand(
		newCompletionZshCommand(),
		newCompletionInstallCommand(),
		newCompletionRemoveCommand(),
		newCompletionStatusCommand(),
	)
	return cmd
}

func newCompletionZshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Root().GenZshCompletion(os.Stdout)
		},
	}
}

func newCompletionInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install zsh completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := installZshCompletion(cmd.Root())
			if err != nil {
				return err
			}
			fmt.Printf("Installed completion script: %s\n", status.ScriptPath)
			fmt.Printf("Updated zsh config: %s\n", status.ZshrcPath)
			fmt.Println("Restart shell or run: exec zsh")
			return nil
		},
	}
}

func newCompletionRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove zsh completion",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			status, err := removeZshCompletion()
			if err != nil {
				return err
			}
			fmt.Printf("Updated zsh config: %s\n", status.ZshrcPath)
			fmt.Println("Removed completion script and managed block.")
			return nil
		},
	}
}

func newCompletionStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show zsh completion install status",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCompletionStatus()
		},
	}
}

func runCompletionStatus() error {
	status, err := detectZshCompletionStatus()
	if err != nil {
		return err
	}
	fmt.Printf("installed: %t\n", status.Installed)
	fmt.Printf("enabled: %t\n", status.Enabled)
	fmt.Printf("script: %s\n", status.ScriptPath)
	fmt.Printf("zshrc: %s\n", status.ZshrcPath)
	if !status.Installed || !status.Enabled {
		fmt.Println("Install with: hqx completion install")
	}
	return nil
}

func zshCompletionPaths() (string, string, error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "", "", errors.New("HOME not set")
	}
	script := filepath.Join(home, ".hqx", "completions", "_hqx")
	zshrc := filepath.Join(home, ".zshrc")
	return script, zshrc, nil
}

func detectZshCompletionStatus() (zshCompletionStatus, error) {
	script, zshrc, err := zshCompletionPaths()
	if err != nil {
		return zshCompletionStatus{}, err
	}
	status := zshCompletionStatus{ScriptPath: script, ZshrcPath: zshrc}

	if info, err := os.Stat(script); err == nil && info.Size() > 0 {
		status.Installed = true
	}

	data, err := os.ReadFile(zshrc)
	switch {
	case err == nil:
		_, _, found := splitManagedBlock(string(data), zshCompletionBlockStart, zshCompletionBlockEnd)
		status.Enabled = found
	case !errors.Is(err, os.ErrNotExist):
		return zshCompletionStatus{}, err
	}
	return status, nil
}

func installZshCompletion(root *cobra.Command) (zshCompletionStatus, error) {
	status, err := detectZshCompletionStatus()
	if err != nil {
		return zshCompletionStatus{}, err
	}
	if err := writeCompletionScript(root, status.ScriptPath); err != nil {
		return zshCompletionStatus{}, err
	}
	err = patchZshrc(status.ZshrcPath, func(current string) string {
		return upsertCompletionBlock(current, zshCompletionBlock())
	})
	if err != nil {
		return zshCompletionStatus{}, err
	}
	return detectZshCompletionStatus()
}

func removeZshCompletion() (zshCompletionStatus, error) {
	status, err := detectZshCompletionStatus()
	if err != nil {
		return zshCompletionStatus{}, err
	}
	err = patchZshrc(status.ZshrcPath, func(current string) string {
		return removeManagedBlock(current, zshCompletionBlockStart, zshCompletionBlockEnd)
	})
	if err != nil {
		return zshCompletionStatus{}, err
	}
	if err := os.Remove(status.ScriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return zshCompletionStatus{}, err
	}
	return detectZshCompletionStatus()
}

func writeCompletionScript(root *cobra.Command, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := root.GenZshCompletion(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// patchZshrc rewrites the zsh config through transform. A missing file counts
// as empty so first-time installs create it.
func patchZshrc(path string, transform func(string) string) error {
	current := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		current = string(data)
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	return os.WriteFile(path, []byte(transform(current)), 0o644)
}

func zshCompletionBlock() string {
	return zshCompletionBlockStart + "\n" +
		`fpath+=("$HOME/.hqx/completions")` + "\n" +
		"autoload -Uz compinit\n" +
		"compinit\n" +
		zshCompletionBlockEnd + "\n"
}

// splitManagedBlock cuts content around a marker-delimited block, returning
// the text before and after it.
func splitManagedBlock(content string, startMarker string, endMarker string) (string, string, bool) {
	start := strings.Index(content, startMarker)
	if start < 0 {
		return "", "", false
	}
	tail := content[start:]
	end := strings.Index(tail, endMarker)
	if end < 0 {
		return "", "", false
	}
	return content[:start], tail[end+len(endMarker):], true
}

func upsertCompletionBlock(content string, block string) string {
	before, after, found := splitManagedBlock(content, zshCompletionBlockStart, zshCompletionBlockEnd)
	if found {
		return strings.TrimRight(before+block+after, "\n") + "\n"
	}
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return block
	}
	return content + "\n\n" + block
}

func removeManagedBlock(content string, startMarker string, endMarker string) string {
	before, after, found := splitManagedBlock(content, startMarker, endMarker)
	if !found {
		return strings.TrimRight(content, "\n") + "\n"
	}
	before = strings.TrimRight(before, "\n")
	after = strings.TrimLeft(after, "\n")
	switch {
	case before == "" && after == "":
		return ""
	case before == "":
		return after + "\n"
	case after == "":
		return before + "\n"
	}
	return before + "\n\n" + after + "\n"
}
