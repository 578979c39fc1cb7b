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

package builder

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/archive"
	"github.com/subsentient/packrat/internal/fileops"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/manifest"
	"github.com/subsentient/packrat/internal/model"
)

// StageFromSysroot reconstructs a staging tree for ReverseInstall: it
// copies fl's files out of the live sysroot into a fresh staging
// directory's files/, preserving the ownership and mode recorded in fl
// (not the sysroot's live metadata), then computes checksums and writes
// filelist.txt, checksums.txt and metadata.txt into info/ (spec.md §4.9
// ReverseInstall materialize step). It does not compress: the caller
// compresses the returned staging directory into the archive.
func StageFromSysroot(pkg *model.Package, fl model.FileList, sysroot, parentDir string, resolver *idmap.Resolver) (stagingDir string, err error) {
	stagingDir = filepath.Join(parentDir, StagingDirName(pkg)+".reverseinstall")
	if err := os.MkdirAll(archive.FilesDir(stagingDir), 0755); err != nil {
		return "", errors.Wrapf(err, "builder: creating %s", archive.FilesDir(stagingDir))
	}
	if err := os.MkdirAll(archive.InfoDir(stagingDir), 0755); err != nil {
		return "", errors.Wrapf(err, "builder: creating %s", archive.InfoDir(stagingDir))
	}

	for _, e := range fl {
		uid, gid, err := idmap.ResolveOwnership(resolver, e.Owner, e.Group)
		if err != nil {
			return "", errors.Wrapf(err, "builder: resolving ownership for %s", e.Path)
		}

		if e.Type == model.EntryDirectory {
			if err := fileops.RecursiveMkdir(e.Path, archive.FilesDir(stagingDir), uid, gid, os.FileMode(e.Mode)); err != nil {
				return "", errors.Wrapf(err, "builder: staging directory %s", e.Path)
			}
			continue
		}

		src := fileops.Dest(sysroot, e.Path)
		info, err := os.Lstat(src)
		if err != nil {
			return "", errors.Wrapf(err, "builder: stat %s", src)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if err := fileops.CopySymlink(src, e.Path, archive.FilesDir(stagingDir), uid, gid, true); err != nil {
				return "", errors.Wrapf(err, "builder: staging symlink %s", e.Path)
			}
			continue
		}
		if err := fileops.CopyFile(src, e.Path, archive.FilesDir(stagingDir), uid, gid, os.FileMode(e.Mode), true); err != nil {
			return "", errors.Wrapf(err, "builder: staging file %s", e.Path)
		}
	}

	checksums, err := BuildChecksumList(archive.FilesDir(stagingDir), fl)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(archive.InfoDir(stagingDir), "filelist.txt"), manifest.EmitFileList(fl), 0644); err != nil {
		return "", errors.Wrap(err, "builder: writing filelist.txt")
	}
	if err := os.WriteFile(filepath.Join(archive.InfoDir(stagingDir), "checksums.txt"), manifest.EmitChecksums(checksums), 0644); err != nil {
		return "", errors.Wrap(err, "builder: writing checksums.txt")
	}
	if err := os.WriteFile(filepath.Join(archive.InfoDir(stagingDir), "metadata.txt"), manifest.EmitMetadata(pkg), 0644); err != nil {
		return "", errors.Wrap(err, "builder: writing metadata.txt")
	}

	return stagingDir, nil
}
