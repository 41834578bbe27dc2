package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	installVersionFn       = installVersion
	resolveLatestVersionFn = resolveLatestVersion
)

func newRootCommand(args []string) *cobra.Command {
	var showVersion bool
	var hostsFileFlag string
	var cloneDirFlag string
	root := &cobra.Command{
		Use:           "hqx",
		Short:         "Interactive host quick-connect and repo browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if showVersion {
				return runVersionCommand()
			}
			return runDefault(args, hostsFileFlag, cloneDirFlag)
		},
	}
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Print hqx version and exit")
	root.Flags().StringVar(&hostsFileFlag, "hosts-file", "", "Hosts file to read for this run")
	root.Flags().StringVar(&cloneDirFlag, "clone-dir", "", "Clone directory for this run")

	root.AddCommand(
		newVersionCommand(),
		newConfigCommand(),
		newUpdateCommand(),
		newCompletionCommand(),
	)

	if len(args) > 1 {
		root.SetArgs(args[1:])
	}
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print hqx version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVersionCommand()
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Open interactive configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigForm(testModeEnabled())
		},
	}
}

func newUpdateCommand() *cobra.Command {
	var checkOnly bool
	var quiet bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and install the latest hqx version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runUpdateCommand(checkOnly, quiet)
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates only")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Print machine-friendly output")
	return cmd
}

func runDefault(args []string, hostsFileFlag string, cloneDirFlag string) error {
	if testModeEnabled() {
		fmt.Println("hqx test mode: interactive UI bypassed")
		return nil
	}
	handled, err := ensureFreshTmuxSession(args)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	exists, err := ConfigExists()
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("hqx not configured. run: hqx config")
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if flag := strings.TrimSpace(hostsFileFlag); flag != "" {
		cfg.HostsFile = expandHomePath(flag)
	}
	if flag := strings.TrimSpace(cloneDirFlag); flag != "" {
		cfg.CloneDir = expandHomePath(flag)
	}

	setITermHQXTab()
	setStartupStatusBanner(cfg.HostsFile)

	shouldResetTabColor := true
	defer func() {
		if shouldResetTabColor {
			resetITermTabColor()
		}
	}()

	m := newModel(cfg)
	if m.watcher != nil {
		defer m.watcher.Close()
	}
	p := tea.NewProgram(m, tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := finalModel.(model); ok {
		host := strings.TrimSpace(fm.PendingHost())
		if host != "" {
			shouldResetTabColor = false
			if _, err := NewSessionLauncher().RunSSH(host); err != nil {
				return err
			}
		}
	}
	return nil
}

func runVersionCommand() error {
	cur := currentVersion()
	fmt.Println(cur)

	ctx, cancel := context.WithTimeout(context.Background(), resolveUpdateTimeout)
	defer cancel()

	latest, err := resolveLatestVersionFn(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hqx version check: %v\n", err)
		return nil
	}
	result := updateCheckResult{
		CurrentVersion:  cur,
		LatestVersion:   latest,
		UpdateAvailable: isUpdateAvailableForInstall(cur, latest),
	}
	printUpdateCheckResultTo(os.Stderr, result, false)
	if !result.UpdateAvailable || !isInteractiveTerminal(os.Stdin) || !isInteractiveTerminal(os.Stdout) {
		return nil
	}
	return promptAndMaybeInstallVersionUpdate(os.Stdin, os.Stdout, result)
}

func promptAndMaybeInstallVersionUpdate(r io.Reader, w io.Writer, result updateCheckResult) error {
	if !result.UpdateAvailable {
		return nil
	}
	fmt.Fprint(w, "Do you want to update now? [y/N]: ")
	reader := bufio.NewReader(r)
	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(w, "Skipped update.")
		return nil
	}

	installCtx, installCancel := context.WithTimeout(context.Background(), installUpdateTimeout)
	defer installCancel()
	fmt.Fprintf(w, "Updating hqx to %s...\n", result.LatestVersion)
	if err := installVersionFn(installCtx, result.LatestVersion); err != nil {
		return err
	}
	fmt.Fprintf(w, "Updated hqx to %s\n", result.LatestVersion)
	return nil
}

func isInteractiveTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
