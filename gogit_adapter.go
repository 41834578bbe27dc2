package main

import (
	git "github.com/go-git/go-git/v5"
)

// verifyCloneDir confirms a freshly cloned directory opens as a git
// repository and reads the checked-out branch for the success notice.
// An unborn or detached HEAD is not a failure; the branch is simply
// unknown (empty repositories clone fine).
func verifyCloneDir(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}
