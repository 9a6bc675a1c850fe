package change

import (
	"errors"
	"fmt"
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/sys/unix"

	"bork/repopath"
)

// ErrSymlinkInPath indicates a path component was a symlink (or replaced by
// one mid-operation). The change is dropped; nothing outside the repo root
// is ever touched.
var ErrSymlinkInPath = errors.New("symlink in path")

// openParent opens the parent directory of p by walking each component from
// the repo root with O_NOFOLLOW, so no component can be a symlink. Missing
// components are created as real directories when create is set; a create
// racing with something else appearing retries the open, which rejects
// symlinks again. The remaining TOCTOU window is the rename/unlink on the
// returned fd, which is parent-relative and therefore confined to a
// directory already verified symlink-free.
func (a *Applier) openParent(p repopath.RepoPath, create bool) (parentFD int, base string, err error) {
	// Lexical defense in depth before any filesystem access.
	if _, err := securejoin.SecureJoin(a.root, p.String()); err != nil {
		return -1, "", fmt.Errorf("join %q under root: %w", p, err)
	}

	segs := p.Segments()
	base = segs[len(segs)-1]

	fd, err := unix.Open(a.root, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, "", fmt.Errorf("opening repo root: %w", err)
	}

	for _, seg := range segs[:len(segs)-1] {
		for {
			next, err := unix.Openat(fd, seg, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
			if err == nil {
				unix.Close(fd)
				fd = next
				break
			}
			if errors.Is(err, unix.ENOENT) && create {
				if mkErr := unix.Mkdirat(fd, seg, 0o755); mkErr != nil && !errors.Is(mkErr, unix.EEXIST) {
					unix.Close(fd)
					return -1, "", fmt.Errorf("creating directory %s: %w", seg, mkErr)
				}
				continue
			}
			unix.Close(fd)
			if errors.Is(err, unix.ELOOP) || errors.Is(err, unix.ENOTDIR) {
				return -1, "", fmt.Errorf("%w: component %q of %s", ErrSymlinkInPath, seg, p)
			}
			if errors.Is(err, unix.ENOENT) {
				return -1, "", fmt.Errorf("%w: %s", os.ErrNotExist, p)
			}
			return -1, "", fmt.Errorf("opening directory %s: %w", seg, err)
		}
	}

	return fd, base, nil
}

// put writes contents to p atomically: a sibling temporary file in the
// already-verified parent directory, then a rename into place. A symlink at
// the destination is unlinked under the held parent fd, never followed.
func (a *Applier) put(p repopath.RepoPath, contents []byte) error {
	fd, base, err := a.openParent(p, true)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstatat(fd, base, &st, unix.AT_SYMLINK_NOFOLLOW); err == nil {
		if st.Mode&unix.S_IFMT == unix.S_IFLNK {
			if err := unix.Unlinkat(fd, base, 0); err != nil {
				return fmt.Errorf("removing symlink destination %s: %w", p, err)
			}
		}
	}

	tmp, tfd, err := openSiblingTemp(fd, base)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", p, err)
	}

	f := os.NewFile(uintptr(tfd), tmp)
	if _, err := f.Write(contents); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		unix.Unlinkat(fd, tmp, 0)
		return fmt.Errorf("writing %s: %w", p, err)
	}

	if err := unix.Renameat(fd, tmp, fd, base); err != nil {
		unix.Unlinkat(fd, tmp, 0)
		return fmt.Errorf("renaming into %s: %w", p, err)
	}
	return nil
}

// openSiblingTemp creates an exclusive temporary file next to base in the
// directory referenced by fd.
func openSiblingTemp(fd int, base string) (string, int, error) {
	for i := 0; ; i++ {
		name := fmt.Sprintf(".%s.bork%d.tmp", base, i)
		tfd, err := unix.Openat(fd, name,
			unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0o644)
		if err == nil {
			return name, tfd, nil
		}
		if !errors.Is(err, unix.EEXIST) {
			return "", -1, err
		}
	}
}

// remove deletes p without following symlinks anywhere in its path. Only
// regular files, symlink entries, and empty directories are removed. A
// missing target is a no-op.
func (a *Applier) remove(p repopath.RepoPath) error {
	fd, base, err := a.openParent(p, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstatat(fd, base, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", p, err)
	}

	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		if err := unix.Unlinkat(fd, base, unix.AT_REMOVEDIR); err != nil {
			return fmt.Errorf("removing directory %s: %w", p, err)
		}
		return nil
	}
	if mode := st.Mode & unix.S_IFMT; mode != unix.S_IFREG && mode != unix.S_IFLNK {
		return fmt.Errorf("refusing to remove %s: not a regular file, symlink or directory", p)
	}
	if err := unix.Unlinkat(fd, base, 0); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}
