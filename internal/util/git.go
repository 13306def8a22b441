package util

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitInfo contains git repository information
type GitInfo struct {
	HeadCommitSHA string
	ModifiedFiles map[string]bool // absolute paths changed relative to HEAD
	IsGitRepo     bool
}

// GetGitInfo retrieves git information for a repository path. A directory
// that is not a git work tree is not an error.
func GetGitInfo(ctx context.Context, repoPath string) (*GitInfo, error) {
	info := &GitInfo{
		ModifiedFiles: make(map[string]bool),
	}

	if _, err := runGit(ctx, repoPath, "rev-parse", "--git-dir"); err != nil {
		return info, nil
	}
	info.IsGitRepo = true

	output, err := runGit(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		// fresh repository without commits
		return info, nil
	}
	info.HeadCommitSHA = strings.TrimSpace(output)

	output, err = runGit(ctx, repoPath, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to get modified files: %w", err)
	}
	addPaths(info.ModifiedFiles, repoPath, output)

	output, err = runGit(ctx, repoPath, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("failed to get untracked files: %w", err)
	}
	addPaths(info.ModifiedFiles, repoPath, output)

	return info, nil
}

// IsFileModified checks if a file is modified compared to HEAD
func IsFileModified(gitInfo *GitInfo, filePath string) bool {
	if gitInfo == nil || !gitInfo.IsGitRepo {
		return false
	}
	return gitInfo.ModifiedFiles[filePath]
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func addPaths(set map[string]bool, repoPath, output string) {
	for _, file := range strings.Split(strings.TrimSpace(output), "\n") {
		if file != "" {
			set[filepath.Join(repoPath, file)] = true
		}
	}
}
