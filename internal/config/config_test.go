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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSysrootConf(t *testing.T, contents string) string {
	t.Helper()
	sysroot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(sysroot, "etc"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sysroot, "etc", "packrat.conf"), []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return sysroot
}

func TestLoadParsesRepeatedArchWithPrimaryMarker(t *testing.T) {
	sysroot := writeSysrootConf(t, "Arch=i686\nArch=@x86_64\nOSRelease=30\n")

	cfg, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PrimaryArch != "x86_64" {
		t.Errorf("PrimaryArch = %q, want x86_64", cfg.PrimaryArch)
	}
	if len(cfg.SupportedArches) != 2 {
		t.Fatalf("SupportedArches = %v, want 2 entries", cfg.SupportedArches)
	}
	if cfg.OSRelease != "30" {
		t.Errorf("OSRelease = %q, want 30", cfg.OSRelease)
	}
}

func TestIsArchSupportedAlwaysAllowsNoarch(t *testing.T) {
	sysroot := writeSysrootConf(t, "Arch=@x86_64\n")
	cfg, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsArchSupported("noarch") {
		t.Error("IsArchSupported(noarch) = false, want true regardless of configuration")
	}
	if cfg.IsArchSupported("riscv64") {
		t.Error("IsArchSupported(riscv64) = true, want false")
	}
}

func TestLoadParsesRepo(t *testing.T) {
	sysroot := writeSysrootConf(t, "Arch=@x86_64\nRepo=main,https://example.invalid/repo,x86_64,10\n")
	cfg, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Repos) != 1 {
		t.Fatalf("Repos = %v, want 1 entry", cfg.Repos)
	}
	repo := cfg.Repos[0]
	if repo.Name != "main" || repo.URL != "https://example.invalid/repo" || repo.Arch != "x86_64" || repo.Priority != 10 {
		t.Errorf("unexpected repo: %+v", repo)
	}
}
