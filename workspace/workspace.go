package workspace

import (
	"os"
	"path/filepath"
)

// DetectRoot detects the repository root directory.
// It tries to find the Git repository root, otherwise uses the current directory.
func DetectRoot() (string, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	if gitRoot := findGitRoot(pwd); gitRoot != "" {
		return gitRoot, nil
	}

	// Without a .git the snapshotter still works; it just cannot compute
	// the specs diff against main.
	return pwd, nil
}

// findGitRoot walks up the directory tree looking for a .git directory
func findGitRoot(startPath string) string {
	currentPath := startPath

	for {
		gitPath := filepath.Join(currentPath, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			return currentPath
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			break
		}
		currentPath = parentPath
	}

	return ""
}
