package main

import (
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

type Host struct {
	Name string
	IP   string
}

// skippedIPPrefixes covers loopback, broadcast, and the IPv6 boilerplate
// entries every stock hosts file carries.
var skippedIPPrefixes = []string{
	"127.",
	"::1",
	"255.255.255.255",
	"fe00::",
	"ff00::",
	"ff02::",
}

func loadHostsFile(path string) ([]Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseHostsContent(string(data)), nil
}

func parseHostsContent(content string) []Host {
	hosts := make([]Host, 0, 16)
	for _, line := range strings.Split(content, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip := fields[0]
		if skippedIP(ip) {
			continue
		}
		for _, name := range fields[1:] {
			hosts = append(hosts, Host{Name: name, IP: ip})
		}
	}
	return hosts
}

func skippedIP(ip string) bool {
	lowered := strings.ToLower(ip)
	for _, prefix := range skippedIPPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// canonicalHosts keeps the first-listed alias per distinct ip, preserving
// file order. Only canonical hosts are probed or searched; aliases would
// otherwise hit the same machine twice.
func canonicalHosts(hosts []Host) []Host {
	seen := make(map[string]bool, len(hosts))
	out := make([]Host, 0, len(hosts))
	for _, host := range hosts {
		if seen[host.IP] {
			continue
		}
		seen[host.IP] = true
		out = append(out, host)
	}
	return out
}

type hostsFileChangedMsg struct{}

type hostsWatcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// newHostsWatcher watches the directory holding the hosts file rather than
// the file itself; editors that replace the file via rename would otherwise
// drop the watch.
func newHostsWatcher(path string) (*hostsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return &hostsWatcher{watcher: watcher, path: path}, nil
}

// waitCmd blocks until the hosts file is written, created, or renamed.
// The Update handler re-arms it after each delivery.
func (w *hostsWatcher) waitCmd() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return nil
				}
				if event.Name != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				return hostsFileChangedMsg{}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (w *hostsWatcher) Close() error {
	if w == nil || w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}
