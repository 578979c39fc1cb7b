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
	"strconv"
	"testing"

	"github.com/subsentient/packrat/internal/archive"
	"github.com/subsentient/packrat/internal/config"
	"github.com/subsentient/packrat/internal/idmap"
	"github.com/subsentient/packrat/internal/model"
	"github.com/subsentient/packrat/internal/store"
)

// noopHooks is a HookRunner that always succeeds without executing anything,
// keeping these tests independent of /bin/sh being present.
type noopHooks struct{}

func (noopHooks) Run(sysroot, command string) (int, error) { return 0, nil }

// newTestSysroot lays out a minimal sysroot: a passwd/group database
// matching the current process's credentials (so materialize's chown calls
// succeed without requiring a specific test-runner uid), a packrat.conf
// naming x86_64 as the sole, primary architecture, and an initialized
// installed database.
func newTestSysroot(t *testing.T) string {
	t.Helper()
	sysroot := t.TempDir()

	if err := os.MkdirAll(filepath.Join(sysroot, "etc"), 0755); err != nil {
		t.Fatalf("MkdirAll etc: %v", err)
	}

	uid, gid := os.Getuid(), os.Getgid()
	// Packages built by buildPackage record the host's names for the
	// source files' owner and group, so the sysroot reuses those names.
	userName, groupName := "test", "test"
	if host, err := idmap.Load("/"); err == nil {
		if u, ok := host.LookupUserID(uid); ok {
			userName = u.Name
		}
		if g, ok := host.LookupGroupID(gid); ok {
			groupName = g.Name
		}
	}
	passwd := "root:x:0:0:root:/root:/bin/sh\n"
	group := "root:x:0:\n"
	if uid != 0 {
		passwd += userName + ":x:" + strconv.Itoa(uid) + ":" + strconv.Itoa(gid) + ":test:/home/test:/bin/sh\n"
	}
	if gid != 0 {
		group += groupName + ":x:" + strconv.Itoa(gid) + ":\n"
	}
	if err := os.WriteFile(filepath.Join(sysroot, "etc", "passwd"), []byte(passwd), 0644); err != nil {
		t.Fatalf("writing passwd: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sysroot, "etc", "group"), []byte(group), 0644); err != nil {
		t.Fatalf("writing group: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sysroot, "etc", "packrat.conf"), []byte("Arch=@x86_64\nOSRelease=1\n"), 0644); err != nil {
		t.Fatalf("writing packrat.conf: %v", err)
	}

	if err := InitializeDB(sysroot); err != nil {
		t.Fatalf("InitializeDB: %v", err)
	}
	return sysroot
}

// buildPackage runs CreatePackage against a fresh source directory
// populated with files, returning the built .pkrt path.
func buildPackage(t *testing.T, pkg *model.Package, files map[string]string) string {
	t.Helper()
	sourceDir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(sourceDir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("MkdirAll %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile %s: %v", full, err)
		}
	}

	outDir := t.TempDir()
	outFile, err := CreatePackage(pkg, sourceDir, outDir)
	if err != nil {
		t.Fatalf("CreatePackage: %v", err)
	}
	return outFile
}

func loadConfig(t *testing.T, sysroot string) *config.Config {
	t.Helper()
	cfg, err := config.Load(sysroot)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	actionErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *action.Error, got %T: %v", err, err)
	}
	return actionErr.Kind
}

func TestInstallUpdateUninstallLifecycle(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)

	v1 := &model.Package{
		PackageID: "widget", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 1,
	}
	pkgFile1 := buildPackage(t, v1, map[string]string{
		"usr/bin/widget":     "binary v1",
		"usr/share/doc/note": "v1 doc",
	})

	installed, err := Install(cfg, sysroot, pkgFile1, noopHooks{})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if installed.Ref() != v1.Ref() {
		t.Errorf("Install returned %s, want %s", installed.Ref(), v1.Ref())
	}
	if _, err := os.Stat(filepath.Join(sysroot, "usr", "bin", "widget")); err != nil {
		t.Errorf("installed file missing: %v", err)
	}
	if exists, err := store.Exists("widget", "x86_64", sysroot); err != nil || !exists {
		t.Errorf("installed DB row missing after Install: exists=%v err=%v", exists, err)
	}

	// Re-installing the same package is rejected (P3).
	if _, err := Install(cfg, sysroot, pkgFile1, noopHooks{}); err == nil {
		t.Error("Install did not reject an already-installed package")
	} else if kindOf(t, err) != KindAlreadyInstalled {
		t.Errorf("Install re-run returned Kind %v, want AlreadyInstalled", kindOf(t, err))
	}

	// Update to v2: drops usr/share/doc/note, adds usr/share/doc/changelog.
	v2 := &model.Package{
		PackageID: "widget", Arch: "x86_64", VersionString: "2.0", PackageGeneration: 1,
	}
	pkgFile2 := buildPackage(t, v2, map[string]string{
		"usr/bin/widget":          "binary v2",
		"usr/share/doc/changelog": "v2 changelog",
	})

	updated, err := Update(cfg, sysroot, pkgFile2, noopHooks{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.VersionString != "2.0" {
		t.Errorf("Update returned version %s, want 2.0", updated.VersionString)
	}
	if _, err := os.Stat(filepath.Join(sysroot, "usr", "share", "doc", "changelog")); err != nil {
		t.Errorf("new file from update missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sysroot, "usr", "share", "doc", "note")); !os.IsNotExist(err) {
		t.Errorf("file dropped by update still present (P4): err=%v", err)
	}
	if exists, _ := store.Exists("widget", "x86_64", sysroot); !exists {
		t.Error("installed DB row missing after Update")
	}

	// Updating to the same version again is rejected.
	if _, err := Update(cfg, sysroot, pkgFile2, noopHooks{}); err == nil {
		t.Error("Update did not reject a same-version reinstall")
	} else if kindOf(t, err) != KindAlreadyInstalled {
		t.Errorf("same-version Update returned Kind %v, want AlreadyInstalled", kindOf(t, err))
	}

	// ReverseInstall reconstructs an archive from the live sysroot.
	reverseOutDir := t.TempDir()
	reversedFile, err := ReverseInstall(sysroot, "widget", "x86_64", reverseOutDir)
	if err != nil {
		t.Fatalf("ReverseInstall: %v", err)
	}
	if _, err := os.Stat(reversedFile); err != nil {
		t.Errorf("ReverseInstall did not produce %s: %v", reversedFile, err)
	}

	if _, err := Uninstall(sysroot, "widget", strPtr("x86_64"), noopHooks{}); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sysroot, "usr", "bin", "widget")); !os.IsNotExist(err) {
		t.Errorf("uninstalled file still present: err=%v", err)
	}
	if exists, _ := store.Exists("widget", "x86_64", sysroot); exists {
		t.Error("installed DB row still present after Uninstall")
	}

	// Uninstalling again is rejected as NotInstalled.
	if _, err := Uninstall(sysroot, "widget", strPtr("x86_64"), noopHooks{}); err == nil {
		t.Error("Uninstall did not reject an already-removed package")
	} else if kindOf(t, err) != KindNotInstalled {
		t.Errorf("repeat Uninstall returned Kind %v, want NotInstalled", kindOf(t, err))
	}
}

func TestInstallRejectsUnsupportedArch(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)

	pkg := &model.Package{PackageID: "oddball", Arch: "riscv64", VersionString: "1.0", PackageGeneration: 1}
	pkgFile := buildPackage(t, pkg, map[string]string{"usr/bin/oddball": "binary"})

	if _, err := Install(cfg, sysroot, pkgFile, noopHooks{}); err == nil {
		t.Error("Install did not reject an unsupported architecture")
	} else if kindOf(t, err) != KindArchUnsupported {
		t.Errorf("Install returned Kind %v, want ArchUnsupported", kindOf(t, err))
	}
}

func TestUninstallAmbiguousWithoutArch(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)
	cfg.SupportedArches = append(cfg.SupportedArches, "i686")

	for _, arch := range []string{"x86_64", "i686"} {
		pkg := &model.Package{PackageID: "multiarch", Arch: arch, VersionString: "1.0", PackageGeneration: 1}
		pkgFile := buildPackage(t, pkg, map[string]string{"usr/bin/multiarch": "binary " + arch})
		if _, err := Install(cfg, sysroot, pkgFile, noopHooks{}); err != nil {
			t.Fatalf("Install(%s): %v", arch, err)
		}
	}

	if _, err := Uninstall(sysroot, "multiarch", nil, noopHooks{}); err == nil {
		t.Error("Uninstall without --arch did not reject an ambiguous multi-arch package")
	} else if kindOf(t, err) != KindAmbiguousPackage {
		t.Errorf("ambiguous Uninstall returned Kind %v, want AmbiguousPackage", kindOf(t, err))
	}
}

// TestInstallAndUninstallNoOpOnEmptyFileList covers spec.md §8's explicit
// boundary case: a metapackage with zero File/Directory entries (e.g. one
// that only runs hooks) installs and uninstalls as a no-op on the
// filesystem, but its installed DB row is still written/removed.
func TestInstallAndUninstallNoOpOnEmptyFileList(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)

	pkg := &model.Package{PackageID: "metaonly", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 1}
	pkgFile := buildPackage(t, pkg, map[string]string{})

	if _, err := Install(cfg, sysroot, pkgFile, noopHooks{}); err != nil {
		t.Fatalf("Install of an empty-file-list package: %v", err)
	}
	if exists, err := store.Exists("metaonly", "x86_64", sysroot); err != nil || !exists {
		t.Errorf("installed DB row missing for empty-file-list package: exists=%v err=%v", exists, err)
	}

	if _, err := Uninstall(sysroot, "metaonly", strPtr("x86_64"), noopHooks{}); err != nil {
		t.Fatalf("Uninstall of an empty-file-list package: %v", err)
	}
	if exists, _ := store.Exists("metaonly", "x86_64", sysroot); exists {
		t.Error("installed DB row still present after uninstalling an empty-file-list package")
	}
}

// buildCorruptedChecksumPackage builds a normal one-file package, then
// mounts and recompresses it with a checksums.txt that no longer matches
// usr/bin/widget's real content.
func buildCorruptedChecksumPackage(t *testing.T, pkg *model.Package) string {
	t.Helper()
	pkgFile := buildPackage(t, pkg, map[string]string{"usr/bin/widget": "binary content"})

	mountDir := t.TempDir()
	dir, err := archive.Mount(pkgFile, mountDir)
	if err != nil {
		t.Fatalf("archive.Mount: %v", err)
	}

	checksumsPath := filepath.Join(archive.InfoDir(dir), "checksums.txt")
	bogus := "0000000000000000000000000000000000000000 usr/bin/widget\n"
	if err := os.WriteFile(checksumsPath, []byte(bogus), 0644); err != nil {
		t.Fatalf("corrupting checksums.txt: %v", err)
	}

	outDir := t.TempDir()
	outFile := filepath.Join(outDir, pkg.Ref()+".corrupted.pkrt")
	if err := archive.CompressPackage(dir, outFile); err != nil {
		t.Fatalf("archive.CompressPackage: %v", err)
	}
	return outFile
}

// TestInstallAbortsOnChecksumMismatchBeforeMutation covers spec.md §8's S4:
// a checksum mismatch is detected (and the action aborts) before any
// materialize step touches the sysroot or the installed DB.
func TestInstallAbortsOnChecksumMismatchBeforeMutation(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)

	pkg := &model.Package{PackageID: "tamperproof", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 1}
	pkgFile := buildCorruptedChecksumPackage(t, pkg)

	if _, err := Install(cfg, sysroot, pkgFile, noopHooks{}); err == nil {
		t.Error("Install did not reject a package with a checksum mismatch")
	} else if kindOf(t, err) != KindChecksumMismatch {
		t.Errorf("Install returned Kind %v, want ChecksumMismatch", kindOf(t, err))
	}

	if _, err := os.Stat(filepath.Join(sysroot, "usr", "bin", "widget")); !os.IsNotExist(err) {
		t.Errorf("checksum-mismatch Install mutated the sysroot: err=%v", err)
	}
	if exists, _ := store.Exists("tamperproof", "x86_64", sysroot); exists {
		t.Error("checksum-mismatch Install wrote an installed DB row")
	}
}

// failingPostInstallHooks is a HookRunner whose Run always reports a
// non-zero exit status, recording that it was invoked.
type failingPostInstallHooks struct{ ran *bool }

func (h failingPostInstallHooks) Run(sysroot, command string) (int, error) {
	*h.ran = true
	return 1, nil
}

// TestInstallSucceedsDespiteNonZeroHookExit covers spec.md §8's S5: a hook
// that exits non-zero only produces a warning, never failing the action.
func TestInstallSucceedsDespiteNonZeroHookExit(t *testing.T) {
	sysroot := newTestSysroot(t)
	cfg := loadConfig(t, sysroot)

	pkg := &model.Package{
		PackageID: "hooked", Arch: "x86_64", VersionString: "1.0", PackageGeneration: 1,
		Cmds: model.Cmds{PostInstall: "exit 1"},
	}
	pkgFile := buildPackage(t, pkg, map[string]string{"usr/bin/hooked": "binary"})

	var ran bool
	if _, err := Install(cfg, sysroot, pkgFile, failingPostInstallHooks{ran: &ran}); err != nil {
		t.Fatalf("Install failed because of a non-fatal hook failure: %v", err)
	}
	if !ran {
		t.Fatal("PostInstall hook was never invoked")
	}
	if _, err := os.Stat(filepath.Join(sysroot, "usr", "bin", "hooked")); err != nil {
		t.Errorf("installed file missing: %v", err)
	}
}

func strPtr(s string) *string { return &s }
