package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	CloneDir  string `json:"clone_dir"`
	HostsFile string `json:"hosts_file,omitempty"`
	SSHUser   string `json:"ssh_user,omitempty"`
	PoolSize  int    `json:"pool_size,omitempty"`
}

const (
	defaultHostsFile = "/etc/hosts"
	defaultSSHUser   = "git"
	defaultPoolSize  = 8
	maxPoolSize      = 64
)

func defaultCloneDir() string {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "src"
	}
	return filepath.Join(home, "src")
}

func expandHomePath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}

func LoadConfig() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return applyConfigDefaults(cfg), nil
}

func applyConfigDefaults(cfg Config) Config {
	cfg.CloneDir = expandHomePath(strings.TrimSpace(cfg.CloneDir))
	if cfg.CloneDir == "" {
		cfg.CloneDir = defaultCloneDir()
	}
	cfg.HostsFile = expandHomePath(strings.TrimSpace(cfg.HostsFile))
	if cfg.HostsFile == "" {
		cfg.HostsFile = defaultHostsFile
	}
	cfg.SSHUser = strings.TrimSpace(cfg.SSHUser)
	if cfg.SSHUser == "" {
		cfg.SSHUser = defaultSSHUser
	}
	if cfg.PoolSize < 1 || cfg.PoolSize > maxPoolSize {
		cfg.PoolSize = defaultPoolSize
	}
	return cfg
}

func ConfigExists() (bool, error) {
	path, err := configPath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, err
}

func SaveConfig(cfg Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func configPath() (string, error) {
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "", errors.New("HOME not set")
	}
	return filepath.Join(home, ".hqx", "config.json"), nil
}
