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

package idmap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSysroot(t *testing.T, passwd, group string) string {
	t.Helper()
	sysroot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(sysroot, "etc"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if passwd != "" {
		if err := os.WriteFile(filepath.Join(sysroot, "etc", "passwd"), []byte(passwd), 0644); err != nil {
			t.Fatalf("WriteFile passwd: %v", err)
		}
	}
	if group != "" {
		if err := os.WriteFile(filepath.Join(sysroot, "etc", "group"), []byte(group), 0644); err != nil {
			t.Fatalf("WriteFile group: %v", err)
		}
	}
	return sysroot
}

func TestLoadAndLookup(t *testing.T) {
	sysroot := writeSysroot(t,
		"root:x:0:0:root:/root:/bin/sh\nbin:x:1:1:bin:/bin:/sbin/nologin\n",
		"root:x:0:\nbin:x:1:\n")

	r, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	u, ok := r.LookupUserName("bin")
	if !ok || u.UID != 1 {
		t.Errorf("LookupUserName(bin) = %+v, ok=%v, want uid 1", u, ok)
	}
	name, ok := r.LookupUserID(0)
	if !ok || name.Name != "root" {
		t.Errorf("LookupUserID(0) = %+v, ok=%v, want root", name, ok)
	}
	g, ok := r.LookupGroupName("bin")
	if !ok || g.GID != 1 {
		t.Errorf("LookupGroupName(bin) = %+v, ok=%v, want gid 1", g, ok)
	}

	if _, ok := r.LookupUserName("nobody"); ok {
		t.Error("LookupUserName(nobody) reported ok for a nonexistent user")
	}
}

func TestLoadTreatsMissingFilesAsEmpty(t *testing.T) {
	sysroot := t.TempDir()
	r, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load on a sysroot with no passwd/group: %v", err)
	}
	if _, ok := r.LookupUserName("root"); ok {
		t.Error("LookupUserName found an entry in an empty resolver")
	}
}

func TestLookupUserNameAcceptsBareNumericOwner(t *testing.T) {
	sysroot := writeSysroot(t, "root:x:0:0:root:/root:/bin/sh\n", "root:x:0:\n")
	r, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	u, ok := r.LookupUserName("4242")
	if !ok || u.UID != 4242 {
		t.Errorf("LookupUserName(4242) = %+v, ok=%v, want a synthetic uid-4242 user", u, ok)
	}
}

func TestResolveOwnership(t *testing.T) {
	sysroot := writeSysroot(t, "root:x:0:0:root:/root:/bin/sh\n", "root:x:0:\n")
	r, err := Load(sysroot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	uid, gid, err := ResolveOwnership(r, "root", "root")
	if err != nil {
		t.Fatalf("ResolveOwnership: %v", err)
	}
	if uid != 0 || gid != 0 {
		t.Errorf("ResolveOwnership(root, root) = (%d, %d), want (0, 0)", uid, gid)
	}

	if _, _, err := ResolveOwnership(r, "nosuchuser", "root"); err == nil {
		t.Error("ResolveOwnership did not reject an unknown user")
	}
}
