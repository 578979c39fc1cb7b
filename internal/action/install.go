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
	"github.com/subsentient/packrat/internal/config"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/log"
	"github.com/subsentient/packrat/internal/model"
	"github.com/subsentient/packrat/internal/store"
)

// Install runs the Install state machine of spec.md §4.9:
//
//	Load config -> Open DB -> Mount -> Read metadata -> Precondition checks
//	-> Verify checksums -> Pre-hook -> Materialize -> Post-hook -> Commit -> Teardown
//
// Any failure after Mount triggers Teardown; a failure at Commit after a
// successful Materialize is reported as Critical.
func Install(cfg *config.Config, sysroot, pkgFile string, hooks HookRunner) (*model.Package, error) {
	cacheDir, err := archive.CreateTempCacheDir(sysroot)
	if err != nil {
		return nil, wrap(KindExtractFailed, "", "create cache directory", err)
	}
	defer archive.DeleteTempCacheDir(cacheDir)

	mp, err := mountAndRead(pkgFile, cacheDir)
	if err != nil {
		return nil, err
	}
	ref := mp.pkg.Ref()

	// Precondition checks (spec.md §4.9 table).
	already, err := store.Exists(mp.pkg.PackageID, mp.pkg.Arch, sysroot)
	if err != nil {
		return nil, wrap(KindDBFailure, ref, "check existing installation", err)
	}
	if already {
		return nil, newError(KindAlreadyInstalled, ref, "precondition check", nil)
	}
	if !cfg.IsArchSupported(mp.pkg.Arch) {
		return nil, newError(KindArchUnsupported, ref, "precondition check", nil)
	}

	if err := mp.verify(); err != nil {
		return nil, err
	}

	resolver, err := idmap.Load(sysroot)
	if err != nil {
		return nil, wrap(KindMaterializeFailed, ref, "load passwd database", err)
	}

	runHook(hooks, sysroot, mp.pkg.Cmds.PreInstall, "PreInstall")

	if err := materializeInstall(mp.fileList, archive.FilesDir(mp.dir), sysroot, resolver); err != nil {
		return nil, wrap(KindMaterializeFailed, ref, "materialize files", err)
	}

	runHook(hooks, sysroot, mp.pkg.Cmds.PostInstall, "PostInstall")

	if err := store.SavePackage(mp.pkg,
		filepath.Join(archive.InfoDir(mp.dir), "filelist.txt"),
		filepath.Join(archive.InfoDir(mp.dir), "checksums.txt"),
		sysroot); err != nil {
		log.Error(log.DB, "commit failed after materialize for %s: %v", ref, err)
		return nil, wrap(KindCritical, ref, "commit installed database", err)
	}

	return mp.pkg, nil
}
