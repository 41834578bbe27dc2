package main

import (
	"strings"
)

type SearchResult struct {
	Host      string
	RepoName  string
	FolderKey string
}

// SearchIndex filters discovered repositories by case-insensitive
// substring match. Every rebuild replaces the previous result set
// entirely; results are deduplicated by repo name so mirrored hosts
// never contribute duplicate rows.
type SearchIndex struct {
	results []SearchResult
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{}
}

// Rebuild recomputes results for the query over the canonical hosts, in
// registry order. An empty query yields an empty result set.
func (s *SearchIndex) Rebuild(query string, hosts []string, store *RepoStore) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		s.results = nil
		return
	}

	seen := make(map[string]bool)
	results := make([]SearchResult, 0, 16)
	for _, host := range hosts {
		for _, repo := range store.Get(host).Repos {
			if !strings.Contains(strings.ToLower(repo), query) {
				continue
			}
			if seen[repo] {
				continue
			}
			seen[repo] = true
			results = append(results, SearchResult{
				Host:      host,
				RepoName:  repo,
				FolderKey: folderKeyForRepo(repo),
			})
		}
	}
	s.results = results
}

func (s *SearchIndex) Results() []SearchResult {
	return s.results
}

func (s *SearchIndex) Clear() {
	s.results = nil
}
