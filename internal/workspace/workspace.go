// Package workspace maintains the read-only catalog of local project
// directories that mobiles may open terminal sessions against. Workspace ids
// are a stable hash of the absolute path, so they survive restarts without
// any persistence.
package workspace

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Workspace — the mobile-safe projection of a local project directory.
// No session data crosses this boundary.
type Workspace struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Branch     string `json:"branch,omitempty"`
	IsWorktree bool   `json:"isWorktree"`
}

// Provider — contract consumed by the relay manager.
type Provider interface {
	List() []Workspace
	Get(id string) (Workspace, bool)
}

// Catalog scans configured root directories for projects. Every immediate
// subdirectory of a root is a workspace; a root that is itself a git
// repository is listed directly.
type Catalog struct {
	roots []string

	mu sync.Mutex
}

func NewCatalog(roots []string) *Catalog {
	return &Catalog{roots: roots}
}

func (c *Catalog) List() []Workspace {
	c.mu.Lock()
	roots := append([]string(nil), c.roots...)
	c.mu.Unlock()

	seen := map[string]struct{}{}
	var out []Workspace
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, describe(abs))
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		if isGitDir(root) {
			add(root)
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			add(filepath.Join(root, e.Name()))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Get(id string) (Workspace, bool) {
	for _, ws := range c.List() {
		if ws.ID == id {
			return ws, true
		}
	}
	return Workspace{}, false
}

func describe(abs string) Workspace {
	return Workspace{
		ID:         PathID(abs),
		Name:       filepath.Base(abs),
		Path:       abs,
		Branch:     currentBranch(abs),
		IsWorktree: isWorktree(abs),
	}
}

// PathID returns the stable workspace id for an absolute path.
func PathID(abs string) string {
	sum := sha1.Sum([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}

func isGitDir(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// currentBranch returns the checked-out branch, or "" outside a repository.
func currentBranch(path string) string {
	out, err := exec.Command("git", "-C", path, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// isWorktree reports whether path is a linked git worktree (its git dir and
// the common dir differ).
func isWorktree(path string) bool {
	gitDir, err := exec.Command("git", "-C", path, "rev-parse", "--git-dir").Output()
	if err != nil {
		return false
	}
	commonDir, err := exec.Command("git", "-C", path, "rev-parse", "--git-common-dir").Output()
	if err != nil {
		return false
	}
	a := strings.TrimSpace(string(gitDir))
	b := strings.TrimSpace(string(commonDir))
	return a != b && b != "" && a != ""
}
