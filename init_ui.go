package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

const (
	configCloneDirKey  = "config_clone_dir"
	configHostsFileKey = "config_hosts_file"
	configSSHUserKey   = "config_ssh_user"
	configPoolSizeKey  = "config_pool_size"
)

// runConfigForm collects settings interactively and writes the config file.
// Test mode saves defaults without prompting so e2e runs stay headless.
func runConfigForm(testMode bool) error {
	current, err := LoadConfig()
	if err != nil {
		current = applyConfigDefaults(Config{})
	}

	if testMode {
		if err := SaveConfig(current); err != nil {
			return err
		}
		fmt.Println("hqx test mode: config saved with defaults")
		return nil
	}

	cloneDir := current.CloneDir
	hostsFile := current.HostsFile
	sshUser := current.SSHUser
	poolSize := strconv.Itoa(current.PoolSize)

	form := newConfigForm(&cloneDir, &hostsFile, &sshUser, &poolSize)
	if err := form.Run(); err != nil {
		return err
	}

	size, err := strconv.Atoi(strings.TrimSpace(poolSize))
	if err != nil {
		size = defaultPoolSize
	}
	cfg := applyConfigDefaults(Config{
		CloneDir:  cloneDir,
		HostsFile: hostsFile,
		SSHUser:   sshUser,
		PoolSize:  size,
	})
	if err := SaveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("Saved config.")
	return nil
}

func newConfigForm(cloneDir *string, hostsFile *string, sshUser *string, poolSize *string) *huh.Form {
	cloneInput := huh.NewInput().
		Key(configCloneDirKey).
		Title("Clone directory").
		Description("Where hqx clones repos.").
		Inline(true).
		Value(cloneDir).
		Validate(func(value string) error {
			if strings.TrimSpace(value) == "" {
				return errors.New("clone directory is required")
			}
			return nil
		})

	hostsInput := huh.NewInput().
		Key(configHostsFileKey).
		Title("Hosts file").
		Description("Host list source.").
		Inline(true).
		Value(hostsFile)

	userInput := huh.NewInput().
		Key(configSSHUserKey).
		Title("SSH user").
		Description("User for repo probes and clones.").
		Inline(true).
		Value(sshUser)

	poolInput := huh.NewInput().
		Key(configPoolSizeKey).
		Title("Fetch pool size").
		Description(fmt.Sprintf("Concurrent host probes (1-%d).", maxPoolSize)).
		Inline(true).
		Value(poolSize).
		Validate(validatePoolSize)

	return huh.NewForm(
		huh.NewGroup(cloneInput, hostsInput, userInput, poolInput),
	).
		WithTheme(hqxHuhTheme()).
		WithShowHelp(false)
}

func validatePoolSize(value string) error {
	size, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return errors.New("pool size must be a number")
	}
	if size < 1 || size > maxPoolSize {
		return fmt.Errorf("pool size must be between 1 and %d", maxPoolSize)
	}
	return nil
}
