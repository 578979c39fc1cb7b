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

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/subsentient/packrat/internal/model"
)

func TestEncodeDecodeDependenciesRoundTrip(t *testing.T) {
	deps := []model.Dependency{
		{PackageID: "libfoo", Arch: "x86_64"},
		{PackageID: "libbar", Arch: "noarch", MinimumVersion: "2.1"},
	}

	got := DecodeDependencies(EncodeDependencies(deps))
	if len(got) != len(deps) {
		t.Fatalf("got %d dependencies, want %d", len(got), len(deps))
	}
	for i := range deps {
		if got[i] != deps[i] {
			t.Errorf("dependency %d = %+v, want %+v", i, got[i], deps[i])
		}
	}
}

func TestDecodeDependenciesEmpty(t *testing.T) {
	if got := DecodeDependencies(""); got != nil {
		t.Errorf("DecodeDependencies(\"\") = %+v, want nil", got)
	}
}

func TestInstalledDBSaveLoadDelete(t *testing.T) {
	sysroot := t.TempDir()
	if err := InitializeEmpty(sysroot); err != nil {
		t.Fatalf("InitializeEmpty: %v", err)
	}

	pkg := &model.Package{
		PackageID: "widget", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 2,
		Description: "a widget",
		Cmds:        model.Cmds{PostInstall: "ldconfig"},
	}

	flPath := filepath.Join(sysroot, "filelist.txt")
	csPath := filepath.Join(sysroot, "checksums.txt")
	writeFile(t, flPath, "f root:root:0644 usr/bin/widget\n")
	writeFile(t, csPath, "da39a3ee5e6b4b0d3255bfef95601890afd80709 usr/bin/widget\n")

	if err := SavePackage(pkg, flPath, csPath, sysroot); err != nil {
		t.Fatalf("SavePackage: %v", err)
	}

	loaded, err := LoadPackage("widget", "x86_64", sysroot)
	if err != nil {
		t.Fatalf("LoadPackage: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadPackage returned nil after SavePackage")
	}
	if loaded.VersionString != "1.0" || loaded.PackageGeneration != 2 || loaded.Cmds.PostInstall != "ldconfig" {
		t.Errorf("unexpected loaded package: %+v", loaded)
	}

	fl, cs, err := GetFilesInfo("widget", "x86_64", sysroot)
	if err != nil {
		t.Fatalf("GetFilesInfo: %v", err)
	}
	if len(fl) == 0 || len(cs) == 0 {
		t.Error("GetFilesInfo returned empty file list or checksums")
	}

	if exists, err := Exists("widget", "x86_64", sysroot); err != nil || !exists {
		t.Errorf("Exists = %v, %v, want true, nil", exists, err)
	}

	if err := DeletePackage("widget", "x86_64", sysroot); err != nil {
		t.Fatalf("DeletePackage: %v", err)
	}
	if exists, _ := Exists("widget", "x86_64", sysroot); exists {
		t.Error("package still exists after DeletePackage")
	}
}

func TestCatalogAddAndSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.x86_64.db")
	if err := InitializeEmptyCatalog(path); err != nil {
		t.Fatalf("InitializeEmptyCatalog: %v", err)
	}

	entries := []CatalogEntry{
		{PackageID: "widget", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 1},
		{PackageID: "gadget", Arch: "x86_64", VersionString: "2.0", PackageGeneration: 3,
			Dependencies: []model.Dependency{{PackageID: "widget", Arch: "x86_64"}}},
	}
	for _, e := range entries {
		if err := AddCatalogEntry(path, e); err != nil {
			t.Fatalf("AddCatalogEntry(%s): %v", e.PackageID, err)
		}
	}

	all, err := SearchCatalog(path, nil)
	if err != nil {
		t.Fatalf("SearchCatalog(nil): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("SearchCatalog(nil) returned %d entries, want 2", len(all))
	}

	id := "gadget"
	filtered, err := SearchCatalog(path, &id)
	if err != nil {
		t.Fatalf("SearchCatalog(gadget): %v", err)
	}
	if len(filtered) != 1 || filtered[0].PackageID != "gadget" {
		t.Fatalf("SearchCatalog(gadget) = %+v", filtered)
	}
	if len(filtered[0].Dependencies) != 1 || filtered[0].Dependencies[0].PackageID != "widget" {
		t.Errorf("unexpected dependencies: %+v", filtered[0].Dependencies)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
