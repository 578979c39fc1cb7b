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

	"github.com/subsentient/packrat/internal/builder"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/model"
)

// CreatePackage runs spec.md §4.8 end-to-end: stage sourceDir into a
// <ref>/ staging tree, compress it into <outDir>/<ref>.pkrt, and remove
// the staging tree. Preconditions: all required metadata present and
// sourceDir exists (spec.md §4.9 table).
func CreatePackage(pkg *model.Package, sourceDir, outDir string) (string, error) {
	if err := pkg.Validate(); err != nil {
		return "", newError(KindPackageMalformed, pkg.Ref(), "validate metadata", err)
	}
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return "", newError(KindPackageMalformed, pkg.Ref(), "precondition check", errSourceDirMissing(sourceDir))
	}

	resolver, err := idmap.Load("/")
	if err != nil {
		return "", wrap(KindMaterializeFailed, pkg.Ref(), "load host passwd database", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", wrap(KindMaterializeFailed, pkg.Ref(), "create output directory", err)
	}

	stagingDir, err := builder.Stage(pkg, sourceDir, outDir, resolver)
	if err != nil {
		return "", wrap(KindMaterializeFailed, pkg.Ref(), "stage package", err)
	}
	defer func() {
		_ = os.RemoveAll(stagingDir)
	}()

	outFile := filepath.Join(outDir, pkg.Ref()+".pkrt")
	if err := builder.CompressPackage(stagingDir, outFile); err != nil {
		return "", wrap(KindExtractFailed, pkg.Ref(), "compress package", err)
	}

	return outFile, nil
}

type errSourceDirMissing string

func (s errSourceDirMissing) Error() string {
	return "source directory does not exist: " + string(s)
}
