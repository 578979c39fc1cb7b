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

package action

import (
	"os"
	"path/filepath"

	"github.com/subsentient/packrat/internal/archive"
	"github.com/subsentient/packrat/internal/checksum"
	"github.com/subsentient/packrat/internal/manifest"
	"github.com/subsentient/packrat/internal/model"
)

// mountedPackage is everything read out of a freshly mounted .pkrt: its
// metadata, file list, and raw checksum buffer (kept raw since
// checksum.VerifyChecksums wants the buffer, not a parsed slice).
type mountedPackage struct {
	dir           string
	pkg           *model.Package
	fileList      model.FileList
	checksumsRaw  []byte
}

// mountAndRead mounts pkgFile under cacheDir and parses its three info/
// files. Any failure here surfaces as ExtractFailed (mount failure) or
// PackageMalformed (a missing/unparseable info file), per spec.md §7.
func mountAndRead(pkgFile, cacheDir string) (*mountedPackage, error) {
	dir, err := archive.Mount(pkgFile, filepath.Join(cacheDir, "mount"))
	if err != nil {
		return nil, wrap(KindExtractFailed, "", "mount", err)
	}

	metadataBuf, err := os.ReadFile(filepath.Join(archive.InfoDir(dir), "metadata.txt"))
	if err != nil {
		return nil, wrap(KindPackageMalformed, "", "read metadata", err)
	}
	pkg, err := manifest.ParseMetadata(metadataBuf)
	if err != nil {
		return nil, wrap(KindPackageMalformed, "", "parse metadata", err)
	}
	ref := pkg.Ref()

	if err := pkg.Validate(); err != nil {
		return nil, wrap(KindPackageMalformed, ref, "validate metadata", err)
	}

	fileListBuf, err := os.ReadFile(filepath.Join(archive.InfoDir(dir), "filelist.txt"))
	if err != nil {
		return nil, wrap(KindPackageMalformed, ref, "read file list", err)
	}
	fl, err := manifest.ParseFileList(fileListBuf)
	if err != nil {
		return nil, wrap(KindPackageMalformed, ref, "parse file list", err)
	}

	checksumsRaw, err := os.ReadFile(filepath.Join(archive.InfoDir(dir), "checksums.txt"))
	if err != nil {
		return nil, wrap(KindPackageMalformed, ref, "read checksum list", err)
	}

	// An empty file list is not malformed: a metapackage that only runs
	// hooks has zero File/Directory entries and still installs/uninstalls
	// as a DB-only no-op on files (spec.md §8 boundary case).
	if err := validateChecksumCoverage(fl, checksumsRaw); err != nil {
		return nil, wrap(KindPackageMalformed, ref, "validate checksum coverage", err)
	}

	return &mountedPackage{dir: dir, pkg: pkg, fileList: fl, checksumsRaw: checksumsRaw}, nil
}

// validateChecksumCoverage enforces spec.md I3: every checksum entry's path
// must have a matching File entry in the file list.
func validateChecksumCoverage(fl model.FileList, checksumsRaw []byte) error {
	entries, err := manifest.ParseChecksums(checksumsRaw)
	if err != nil {
		return err
	}
	files := map[string]bool{}
	for _, e := range fl {
		if e.Type == model.EntryFile {
			files[e.Path] = true
		}
	}
	for _, c := range entries {
		if !files[c.Path] {
			return errChecksumPathNotInFileList(c.Path)
		}
	}
	return nil
}

type errChecksumPathNotInFileList string

func (p errChecksumPathNotInFileList) Error() string {
	return "checksum entry references path not present in file list: " + string(p)
}

// verify checks the mounted package's checksum list against its staged
// files/ tree (spec.md §4.1).
func (m *mountedPackage) verify() error {
	if err := checksum.VerifyChecksums(m.checksumsRaw, archive.FilesDir(m.dir)); err != nil {
		return wrap(KindChecksumMismatch, m.pkg.Ref(), "verify checksums", err)
	}
	return nil
}
