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

	"github.com/subsentient/packrat/internal/fileops"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/log"
	"github.com/subsentient/packrat/internal/model"
)

// materializeInstall copies every entry of fl from filesDir into sysroot
// with overwrite=true, resolving owner/group names against the sysroot's
// own passwd database (spec.md §4.9 Install materialize step). A missing
// user or group is fatal (spec.md §7).
func materializeInstall(fl model.FileList, filesDir, sysroot string, resolver *idmap.Resolver) error {
	// Directories first, so files have somewhere to land, matching the
	// file-list's own directories-before-contents ordering invariant.
	for _, e := range fl {
		if e.Type != model.EntryDirectory {
			continue
		}
		if err := materializeOne(e, filesDir, sysroot, resolver); err != nil {
			return err
		}
	}
	for _, e := range fl {
		if e.Type != model.EntryFile {
			continue
		}
		if err := materializeOne(e, filesDir, sysroot, resolver); err != nil {
			return err
		}
	}
	return nil
}

func materializeOne(e model.FileEntry, filesDir, sysroot string, resolver *idmap.Resolver) error {
	uid, gid, err := idmap.ResolveOwnership(resolver, e.Owner, e.Group)
	if err != nil {
		return err
	}

	if e.Type == model.EntryDirectory {
		if err := fileops.CreateDirectory(e.Path, sysroot, uid, gid, os.FileMode(e.Mode)); err != nil && err != fileops.ErrExists {
			return err
		}
		return nil
	}

	src := filepath.Join(filesDir, e.Path)
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fileops.CopySymlink(src, e.Path, sysroot, uid, gid, true)
	}
	return fileops.CopyFile(src, e.Path, sysroot, uid, gid, os.FileMode(e.Mode), true)
}

// unlinkObsolete removes every path in obsolete from sysroot (spec.md §4.9
// Update materialize step / P4). A single unlink failure is logged and
// skipped, not fatal — matching the Uninstall materialize step's
// "failures to unlink are warnings, not fatal" rule, which this repo
// applies uniformly to all unlink-only cleanup.
func unlinkObsolete(paths []string, sysroot string) {
	for _, p := range paths {
		if err := fileops.RemovePath(p, sysroot); err != nil {
			log.Warning(log.Materialize, "failed to remove obsolete file %s: %v", p, err)
		}
	}
}
