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

package manifest

import (
	"reflect"
	"testing"

	"github.com/subsentient/packrat/internal/model"
)

func TestFileListRoundTrip(t *testing.T) {
	fl := model.FileList{
		{Type: model.EntryDirectory, Path: "usr", Owner: "root", Group: "root", Mode: 0755},
		{Type: model.EntryDirectory, Path: "usr/bin", Owner: "root", Group: "root", Mode: 0755},
		{Type: model.EntryFile, Path: "usr/bin/widget", Owner: "root", Group: "bin", Mode: 0644},
	}

	got, err := ParseFileList(EmitFileList(fl))
	if err != nil {
		t.Fatalf("ParseFileList: %v", err)
	}
	if !reflect.DeepEqual(got, fl) {
		t.Errorf("round trip mismatch:\n got:  %+v\n want: %+v", got, fl)
	}
}

func TestParseFileListSkipsMalformedLines(t *testing.T) {
	buf := []byte("d root:root:0755 usr\nthis is not a valid line\nf root:root:0644 usr/readme\n")
	got, err := ParseFileList(buf)
	if err != nil {
		t.Fatalf("ParseFileList: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 parsed entries, got %d: %+v", len(got), got)
	}
}

func TestChecksumListRoundTrip(t *testing.T) {
	entries := []model.ChecksumEntry{
		{Digest: "da39a3ee5e6b4b0d3255bfef95601890afd80709", Path: "usr/bin/widget"},
		{Digest: "356a192b7913b04c54574d18c28d46e6395428ab", Path: "usr/share/doc/widget.txt"},
	}

	got, err := ParseChecksums(EmitChecksums(entries))
	if err != nil {
		t.Fatalf("ParseChecksums: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("round trip mismatch:\n got:  %+v\n want: %+v", got, entries)
	}
}

func TestChecksumListPathWithSpaces(t *testing.T) {
	// the grammar splits on the first space only, so the path may contain
	// spaces of its own.
	buf := []byte("da39a3ee5e6b4b0d3255bfef95601890afd80709 usr/share/doc/read me.txt\n")
	got, err := ParseChecksums(buf)
	if err != nil {
		t.Fatalf("ParseChecksums: %v", err)
	}
	if len(got) != 1 || got[0].Path != "usr/share/doc/read me.txt" {
		t.Fatalf("unexpected parse: %+v", got)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	pkg := &model.Package{
		PackageID:         "widget",
		Arch:              "x86_64",
		VersionString:     "1.2.3",
		PackageGeneration: 4,
		Description:       "a small widget",
		Cmds: model.Cmds{
			PostInstall: "ldconfig",
		},
	}

	got, err := ParseMetadata(EmitMetadata(pkg))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if !reflect.DeepEqual(got, pkg) {
		t.Errorf("round trip mismatch:\n got:  %+v\n want: %+v", got, pkg)
	}
}

func TestParseMetadataRejectsMissingRequiredFields(t *testing.T) {
	_, err := ParseMetadata([]byte("Description=incomplete\n"))
	if err == nil {
		t.Error("ParseMetadata did not reject metadata missing PackageID/Arch/VersionString")
	}
}

func TestParseMetadataIgnoresUnknownKeys(t *testing.T) {
	buf := []byte("PackageID=widget\nArch=noarch\nVersionString=1.0\nFutureKey=surprise\n")
	pkg, err := ParseMetadata(buf)
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if pkg.PackageID != "widget" || pkg.Arch != "noarch" || pkg.VersionString != "1.0" {
		t.Errorf("unexpected parse result: %+v", pkg)
	}
}
