package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrDestinationExists is returned by CopyTree when the target already exists.
var ErrDestinationExists = errors.New("destination already exists")

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// CopyTree recursively copies the directory src to dst. dst must not exist;
// the copy never merges into or overwrites an existing tree.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return CopyFileMode(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

// linkUnsupported lists errnos meaning the filesystem cannot hard link src to
// dst, as opposed to a genuine failure.
var linkUnsupported = []error{
	unix.EXDEV,
	unix.EPERM,
	unix.ENOTSUP,
	unix.EOPNOTSUPP,
	unix.EMLINK,
}

// IsLinkUnsupported reports whether err is a hard-link refusal by the filesystem.
func IsLinkUnsupported(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range linkUnsupported {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// LinkOrCopy hard links src at dst. When the filesystem refuses hard links, or
// allowLink is false, dst becomes a copy and linked is false.
func LinkOrCopy(src, dst string, allowLink bool) (linked bool, err error) {
	if allowLink {
		err := os.Link(src, dst)
		if err == nil {
			return true, nil
		}
		if !IsLinkUnsupported(err) {
			return false, err
		}
	}
	if err := CopyFile(src, dst); err != nil {
		return false, err
	}
	return false, nil
}
