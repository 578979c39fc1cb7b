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
	"path/filepath"

	"github.com/subsentient/packrat/internal/archive"
	"github.com/subsentient/packrat/internal/builder"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/manifest"
	"github.com/subsentient/packrat/internal/store"
)

// ReverseInstall reconstructs a .pkrt from an installed package's files on
// a live sysroot (spec.md §4.9 ReverseInstall). The precondition is simply
// that (id, arch) is installed; the produced archive's file list,
// checksums, and metadata must equal the stored record (S6).
func ReverseInstall(sysroot, id, arch, outDir string) (string, error) {
	pkg, err := store.LoadPackage(id, arch, sysroot)
	if err != nil {
		return "", wrap(KindDBFailure, "", "load installed record", err)
	}
	if pkg == nil {
		return "", newError(KindNotInstalled, id+"."+arch, "precondition check", nil)
	}
	ref := pkg.Ref()

	fileListRaw, _, err := store.GetFilesInfo(id, arch, sysroot)
	if err != nil {
		return "", wrap(KindDBFailure, ref, "load file list", err)
	}
	fl, err := manifest.ParseFileList(fileListRaw)
	if err != nil {
		return "", wrap(KindPackageMalformed, ref, "parse file list", err)
	}

	resolver, err := idmap.Load(sysroot)
	if err != nil {
		return "", wrap(KindMaterializeFailed, ref, "load passwd database", err)
	}

	cacheDir, err := archive.CreateTempCacheDir(sysroot)
	if err != nil {
		return "", wrap(KindExtractFailed, ref, "create cache directory", err)
	}
	defer archive.DeleteTempCacheDir(cacheDir)

	stagingDir, err := builder.StageFromSysroot(pkg, fl, sysroot, cacheDir, resolver)
	if err != nil {
		return "", wrap(KindMaterializeFailed, ref, "stage files from sysroot", err)
	}

	outFile := filepath.Join(outDir, ref+".reverseinstall.pkrt")
	if err := builder.CompressPackage(stagingDir, outFile); err != nil {
		return "", wrap(KindExtractFailed, ref, "compress package", err)
	}

	return outFile, nil
}
