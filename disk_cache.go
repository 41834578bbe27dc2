package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

const cacheFileName = "repos.json"

// DiskCache persists the canonical-host to repo-list mapping as one JSON
// file, read and written wholesale.
type DiskCache struct {
	path string
}

func NewDiskCache() (*DiskCache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return &DiskCache{path: filepath.Join(base, "hqx", cacheFileName)}, nil
}

func (c *DiskCache) Path() string {
	return c.path
}

// Load reads the cached mapping. A missing file is a normal first run and
// yields an empty map; a decode failure is returned for the caller to log
// and otherwise ignore.
func (c *DiskCache) Load() (map[string][]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]string{}, nil
		}
		return nil, err
	}
	repos := make(map[string][]string)
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// Save writes the whole mapping atomically, omitting hosts that have no
// repositories.
func (c *DiskCache) Save(snapshot map[string]RepoState) error {
	repos := make(map[string][]string, len(snapshot))
	for host, state := range snapshot {
		if len(state.Repos) == 0 {
			continue
		}
		repos[host] = state.Repos
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

type cacheSavedMsg struct {
	hosts int
	err   error
}

func saveCacheCmd(cache *DiskCache, snapshot map[string]RepoState) tea.Cmd {
	return func() tea.Msg {
		hosts := 0
		for _, state := range snapshot {
			if len(state.Repos) > 0 {
				hosts++
			}
		}
		return cacheSavedMsg{hosts: hosts, err: cache.Save(snapshot)}
	}
}
