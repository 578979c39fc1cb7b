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

// Package builder implements the package builder/verifier of spec.md §4.8:
// staging a source tree into a package archive's on-disk layout, and the
// reverse operation used by ReverseInstall. Grounded on the teacher's
// staging/validation pattern (builder/bundle_control.go,
// builder/build_validate.go) and the depth-first manifest-building walk of
// swupd/create_manifests.go.
package builder

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/archive"
	"github.com/subsentient/packrat/internal/checksum"
	"github.com/subsentient/packrat/internal/fileops"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/manifest"
	"github.com/subsentient/packrat/internal/model"
)

// StagingDirName returns "<PackageID>_<VersionString>-<PackageGeneration>.<Arch>",
// the staging directory name prescribed by spec.md §4.8 step 1.
func StagingDirName(pkg *model.Package) string {
	return pkg.Ref()
}

// Stage creates the staging directory tree (./files, ./info) under
// parentDir, walks sourceDir depth-first to build the file list, computes
// per-file checksums, writes all three info/ files, and clones every entry
// from sourceDir into files/ preserving ownership and mode (names
// translated to numeric IDs via resolver, per spec.md §4.8 steps 1-5).
// Returns the staging directory path.
func Stage(pkg *model.Package, sourceDir, parentDir string, resolver *idmap.Resolver) (string, error) {
	stagingDir := filepath.Join(parentDir, StagingDirName(pkg))
	if err := os.MkdirAll(archive.FilesDir(stagingDir), 0755); err != nil {
		return "", errors.Wrapf(err, "builder: creating %s", archive.FilesDir(stagingDir))
	}
	if err := os.MkdirAll(archive.InfoDir(stagingDir), 0755); err != nil {
		return "", errors.Wrapf(err, "builder: creating %s", archive.InfoDir(stagingDir))
	}

	fileList, err := WalkSource(sourceDir, resolver)
	if err != nil {
		return "", err
	}

	if err := cloneEntries(sourceDir, archive.FilesDir(stagingDir), fileList, resolver); err != nil {
		return "", err
	}

	checksums, err := BuildChecksumList(archive.FilesDir(stagingDir), fileList)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(archive.InfoDir(stagingDir), "filelist.txt"), manifest.EmitFileList(fileList), 0644); err != nil {
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

// WalkSource walks sourceDir depth-first and records a FileEntry per
// filesystem entry, translating the owning user/group to names via
// resolver (sysroot "/" when building against the host, per spec.md §4.3).
// Directories are emitted before their contents, satisfying the file-list
// ordering invariant (spec.md §3).
func WalkSource(sourceDir string, resolver *idmap.Resolver) (model.FileList, error) {
	var entries model.FileList

	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		entry, err := entryForPath(path, rel, info, resolver)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "builder: walking %s", sourceDir)
	}

	// filepath.Walk already visits a directory before its children in
	// lexical order, which satisfies the file-list ordering invariant
	// (spec.md §3) without any further sorting.
	return entries, nil
}

func entryForPath(path, rel string, info os.FileInfo, resolver *idmap.Resolver) (model.FileEntry, error) {
	uid, gid, err := statOwnership(path, info)
	if err != nil {
		return model.FileEntry{}, err
	}

	owner, ok := resolver.LookupUserID(uid)
	if !ok {
		return model.FileEntry{}, errors.Errorf("builder: no passwd entry for uid %d (%s)", uid, rel)
	}
	group, ok := resolver.LookupGroupID(gid)
	if !ok {
		return model.FileEntry{}, errors.Errorf("builder: no group entry for gid %d (%s)", gid, rel)
	}

	typ := model.EntryFile
	if info.IsDir() {
		typ = model.EntryDirectory
	}

	return model.FileEntry{
		Type:  typ,
		Path:  filepath.ToSlash(rel),
		Owner: owner.Name,
		Group: group.Name,
		Mode:  uint32(info.Mode().Perm()),
	}, nil
}

// cloneEntries clones each non-directory entry from sourceDir into
// destDir, preserving ownership and mode (spec.md §4.8 step 5). Directory
// entries are created first so their contents have somewhere to land.
func cloneEntries(sourceDir, destDir string, entries model.FileList, resolver *idmap.Resolver) error {
	for _, e := range entries {
		if e.Type != model.EntryDirectory {
			continue
		}
		uid, gid, err := idmap.ResolveOwnership(resolver, e.Owner, e.Group)
		if err != nil {
			return errors.Wrapf(err, "builder: resolving ownership for %s", e.Path)
		}
		if err := fileops.RecursiveMkdir(e.Path, destDir, uid, gid, os.FileMode(e.Mode)); err != nil {
			return errors.Wrapf(err, "builder: creating directory %s", e.Path)
		}
	}

	for _, e := range entries {
		if e.Type != model.EntryFile {
			continue
		}
		uid, gid, err := idmap.ResolveOwnership(resolver, e.Owner, e.Group)
		if err != nil {
			return errors.Wrapf(err, "builder: resolving ownership for %s", e.Path)
		}

		src := filepath.Join(sourceDir, e.Path)
		info, err := os.Lstat(src)
		if err != nil {
			return errors.Wrapf(err, "builder: stat %s", src)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if err := fileops.CopySymlink(src, e.Path, destDir, uid, gid, true); err != nil {
				return errors.Wrapf(err, "builder: cloning symlink %s", e.Path)
			}
			continue
		}
		if err := fileops.CopyFile(src, e.Path, destDir, uid, gid, os.FileMode(e.Mode), true); err != nil {
			return errors.Wrapf(err, "builder: cloning file %s", e.Path)
		}
	}
	return nil
}

// BuildChecksumList computes the digest of every regular file entry in fl,
// relative to filesDir. Symlinks and directories are skipped (spec.md §4.1).
func BuildChecksumList(filesDir string, fl model.FileList) ([]model.ChecksumEntry, error) {
	var out []model.ChecksumEntry
	for _, e := range fl {
		if e.Type != model.EntryFile {
			continue
		}
		full := filepath.Join(filesDir, e.Path)
		info, err := os.Lstat(full)
		if err != nil {
			return nil, errors.Wrapf(err, "builder: stat %s", full)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		digest, err := checksum.HashFile(full)
		if err != nil {
			return nil, err
		}
		out = append(out, model.ChecksumEntry{Digest: digest, Path: e.Path})
	}
	return out, nil
}

// CompressPackage compresses stagingDir into outFile (spec.md §4.8 step 6).
func CompressPackage(stagingDir, outFile string) error {
	return archive.CompressPackage(stagingDir, outFile)
}
