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
	"github.com/subsentient/packrat/internal/log"
	"github.com/subsentient/packrat/internal/manifest"
	"github.com/subsentient/packrat/internal/model"
	"github.com/subsentient/packrat/internal/store"
)

// Uninstall runs the Uninstall state machine of spec.md §4.9. If arch is
// nil and the package has installations under more than one Arch, it
// fails with AmbiguousPackage (P6); otherwise it resolves the sole
// installed arch automatically.
func Uninstall(sysroot, id string, arch *string, hooks HookRunner) (*model.Package, error) {
	resolvedArch, err := resolveUninstallArch(sysroot, id, arch)
	if err != nil {
		return nil, err
	}

	pkg, err := store.LoadPackage(id, resolvedArch, sysroot)
	if err != nil {
		return nil, wrap(KindDBFailure, "", "load installed record", err)
	}
	if pkg == nil {
		return nil, newError(KindNotInstalled, id+"."+resolvedArch, "precondition check", nil)
	}
	ref := pkg.Ref()

	fileListRaw, _, err := store.GetFilesInfo(id, resolvedArch, sysroot)
	if err != nil {
		return nil, wrap(KindDBFailure, ref, "load file list", err)
	}
	fl, err := manifest.ParseFileList(fileListRaw)
	if err != nil {
		return nil, wrap(KindPackageMalformed, ref, "parse file list", err)
	}

	runHook(hooks, sysroot, pkg.Cmds.PreUninstall, "PreUninstall")

	// Unlink every file entry; directories are left in place and failures
	// to unlink are warnings, not fatal (spec.md §4.9, I5).
	unlinkObsolete(fl.FilePaths(), sysroot)

	runHook(hooks, sysroot, pkg.Cmds.PostUninstall, "PostUninstall")

	if err := store.DeletePackage(id, resolvedArch, sysroot); err != nil {
		log.Error(log.DB, "commit failed after materialize for %s: %v", ref, err)
		return nil, wrap(KindCritical, ref, "commit installed database", err)
	}

	return pkg, nil
}

func resolveUninstallArch(sysroot, id string, arch *string) (string, error) {
	if arch != nil {
		return *arch, nil
	}

	multi, err := store.HasMultiArches(id, sysroot)
	if err != nil {
		return "", wrap(KindDBFailure, "", "check multi-arch", err)
	}
	if multi {
		return "", newError(KindAmbiguousPackage, id, "precondition check", nil)
	}

	// Exactly zero or one arch remains; NotInstalled either way if there's
	// no single unambiguous row. The single row's arch isn't known without
	// scanning, so callers that omit --arch rely on there being exactly
	// one installed arch for this id; resolve it via the catalog-less
	// installed DB directly.
	a, ok, err := store.FindSoleArch(id, sysroot)
	if err != nil {
		return "", wrap(KindDBFailure, "", "resolve installed arch", err)
	}
	if !ok {
		return "", newError(KindNotInstalled, id, "precondition check", nil)
	}
	return a, nil
}
