// Copyright © 2026 Packrat Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fileops implements the three materialization primitives of
// spec.md §4.2: create directory, copy file, copy symlink, plus recursive
// mkdir. Each primitive takes the parts of the contract
// (source, destinationRelative, sysroot, owner uid, group gid, mode, overwrite?)
// that apply to it: CreateDirectory and RecursiveMkdir have no source or
// overwrite flag, and CopySymlink has no mode.
package fileops

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// defaultDirMode is applied by RecursiveMkdir when no mode is given.
const defaultDirMode = 0755

// copyChunkSize is the stream-copy buffer size for CopyFile.
const copyChunkSize = 1 << 20 // 1 MiB

// Dest joins sysroot and destinationRelative per spec.md §4.2: an empty
// sysroot means "use destinationRelative as given".
func Dest(sysroot, destinationRelative string) string {
	if sysroot == "" {
		return destinationRelative
	}
	return filepath.Join(sysroot, destinationRelative)
}

// ErrExists is returned (non-fatally, per spec.md §4.2) by CreateDirectory
// when the destination already existed and was merely re-chowned/re-chmoded.
var ErrExists = errors.New("destination already exists")

// CreateDirectory ensures destination exists with the given mode and
// ownership. If it already exists, its ownership and mode are updated and
// ErrExists is returned as the error value (callers should treat ErrExists
// as informational, not a failure).
func CreateDirectory(destinationRelative, sysroot string, uid, gid int, mode os.FileMode) error {
	dest := Dest(sysroot, destinationRelative)

	if info, err := os.Lstat(dest); err == nil {
		if !info.IsDir() {
			return errors.Errorf("fileops: %s exists and is not a directory", dest)
		}
		if err := os.Chmod(dest, mode); err != nil {
			return errors.Wrapf(err, "fileops: chmod %s", dest)
		}
		if err := os.Chown(dest, uid, gid); err != nil {
			return errors.Wrapf(err, "fileops: chown %s", dest)
		}
		return ErrExists
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "fileops: stat %s", dest)
	}

	if err := os.Mkdir(dest, mode); err != nil {
		return errors.Wrapf(err, "fileops: mkdir %s", dest)
	}
	if err := os.Chown(dest, uid, gid); err != nil {
		return errors.Wrapf(err, "fileops: chown %s", dest)
	}
	return nil
}

// RecursiveMkdir ensures all parent directories of destinationRelative
// exist (created with defaultDirMode if mode is zero), then applies
// ownership and mode to the leaf only (spec.md §4.2).
func RecursiveMkdir(destinationRelative, sysroot string, uid, gid int, mode os.FileMode) error {
	dest := Dest(sysroot, destinationRelative)
	parentMode := mode
	if parentMode == 0 {
		parentMode = defaultDirMode
	}

	if err := os.MkdirAll(filepath.Dir(dest), parentMode); err != nil {
		return errors.Wrapf(err, "fileops: mkdir -p %s", filepath.Dir(dest))
	}
	if err := os.Mkdir(dest, parentMode); err != nil && !os.IsExist(err) {
		return errors.Wrapf(err, "fileops: mkdir %s", dest)
	}
	if err := os.Chmod(dest, parentMode); err != nil {
		return errors.Wrapf(err, "fileops: chmod %s", dest)
	}
	if err := os.Chown(dest, uid, gid); err != nil {
		return errors.Wrapf(err, "fileops: chown %s", dest)
	}
	return nil
}

// purgeExisting implements the shared "overwrite=true" destination-removal
// step used by both CopyFile and CopySymlink: rmdir if the destination is
// an empty directory, else unlink.
func purgeExisting(dest string) error {
	info, err := os.Lstat(dest)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fileops: stat %s", dest)
	}
	if info.IsDir() {
		if err := os.Remove(dest); err != nil {
			return errors.Wrapf(err, "fileops: rmdir %s (non-empty?)", dest)
		}
		return nil
	}
	if err := os.Remove(dest); err != nil {
		return errors.Wrapf(err, "fileops: unlink %s", dest)
	}
	return nil
}

// CopyFile copies source to sysroot/destinationRelative. It refuses to
// overwrite an existing destination unless overwrite is true; on overwrite
// it purges the destination first (rmdir if an empty directory, else
// unlink), matching spec.md §4.2. After the copy, ownership (not following
// symlinks) and mode are applied.
func CopyFile(source, destinationRelative, sysroot string, uid, gid int, mode os.FileMode, overwrite bool) error {
	dest := Dest(sysroot, destinationRelative)

	if !overwrite {
		if _, err := os.Lstat(dest); err == nil {
			return errors.Errorf("fileops: %s already exists and overwrite=false", dest)
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "fileops: stat %s", dest)
		}
	} else {
		if err := purgeExisting(dest); err != nil {
			return err
		}
	}

	src, err := os.Open(source)
	if err != nil {
		return errors.Wrapf(err, "fileops: opening source %s", source)
	}
	defer func() {
		_ = src.Close()
	}()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "fileops: creating %s", dest)
	}

	buf := make([]byte, copyChunkSize)
	if _, err := io.CopyBuffer(out, src, buf); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "fileops: copying %s to %s", source, dest)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "fileops: closing %s", dest)
	}

	if err := os.Lchown(dest, uid, gid); err != nil {
		return errors.Wrapf(err, "fileops: chown %s", dest)
	}
	if err := os.Chmod(dest, mode); err != nil {
		return errors.Wrapf(err, "fileops: chmod %s", dest)
	}
	return nil
}

// CopySymlink reads the link target of source and recreates it at
// sysroot/destinationRelative, purging an existing destination first when
// overwrite is true. Ownership is applied to the link itself (lchown-style),
// mode is not applicable to symlinks on Linux and is ignored.
func CopySymlink(source, destinationRelative, sysroot string, uid, gid int, overwrite bool) error {
	target, err := os.Readlink(source)
	if err != nil {
		return errors.Wrapf(err, "fileops: reading link %s", source)
	}

	dest := Dest(sysroot, destinationRelative)

	if _, err := os.Lstat(dest); err == nil {
		if !overwrite {
			return errors.Errorf("fileops: %s already exists and overwrite=false", dest)
		}
		if err := purgeExisting(dest); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "fileops: stat %s", dest)
	}

	if err := os.Symlink(target, dest); err != nil {
		return errors.Wrapf(err, "fileops: symlink %s -> %s", dest, target)
	}
	if err := os.Lchown(dest, uid, gid); err != nil {
		return errors.Wrapf(err, "fileops: lchown %s", dest)
	}
	return nil
}

// RemovePath unlinks a single regular-file path at sysroot/destinationRelative,
// used by uninstall and by update's obsolete-file cleanup (spec.md §4.9).
func RemovePath(destinationRelative, sysroot string) error {
	dest := Dest(sysroot, destinationRelative)
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "fileops: unlink %s", dest)
	}
	return nil
}
