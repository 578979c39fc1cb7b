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

// Package manifest implements the file-list, checksum-list, and metadata
// grammars of spec.md §4.5, grounded on the teacher's line-oriented
// manifest reader/writer (swupd/manifest.go).
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/model"
)

// --- file-list ---
//
// line      := type ' ' owner ':' group ':' mode ' ' path
// type      := 'd' | 'f'
// owner     := bytes except ':'
// group     := bytes except ':'
// mode      := octal digits (no leading '0' required)
// path      := bytes until end-of-line

// ParseFileList parses the recognized subset of the file-list grammar.
// Lines that don't match are ignored rather than aborting the parse
// (spec.md §4.5); emitters never produce such lines.
func ParseFileList(buf []byte) (model.FileList, error) {
	var out model.FileList

	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		entry, ok := parseFileListLine(line)
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "manifest: reading file list")
	}
	return out, nil
}

func parseFileListLine(line string) (model.FileEntry, bool) {
	if len(line) < 2 || line[1] != ' ' {
		return model.FileEntry{}, false
	}
	var typ model.EntryType
	switch line[0] {
	case 'd':
		typ = model.EntryDirectory
	case 'f':
		typ = model.EntryFile
	default:
		return model.FileEntry{}, false
	}

	rest := line[2:]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return model.FileEntry{}, false
	}
	ownerGroupMode := rest[:sp]
	path := rest[sp+1:]
	if path == "" {
		return model.FileEntry{}, false
	}

	parts := strings.SplitN(ownerGroupMode, ":", 3)
	if len(parts) != 3 {
		return model.FileEntry{}, false
	}
	mode, err := strconv.ParseUint(parts[2], 8, 32)
	if err != nil {
		return model.FileEntry{}, false
	}

	return model.FileEntry{
		Type:  typ,
		Owner: parts[0],
		Group: parts[1],
		Mode:  uint32(mode),
		Path:  path,
	}, true
}

// EmitFileList serializes a file list in the grammar of spec.md §4.5.
// Entry order is preserved verbatim: directories must already precede
// their contents (the builder's depth-first walk guarantees this).
func EmitFileList(fl model.FileList) []byte {
	var buf bytes.Buffer
	for _, e := range fl {
		var typ byte
		switch e.Type {
		case model.EntryDirectory:
			typ = 'd'
		default:
			typ = 'f'
		}
		fmt.Fprintf(&buf, "%c %s:%s:%o %s\n", typ, e.Owner, e.Group, e.Mode, e.Path)
	}
	return buf.Bytes()
}

// --- checksum-list ---
//
// line := hexdigest SPACE path LF, split on first space only.

// ParseChecksums parses the checksum-list grammar.
func ParseChecksums(buf []byte) ([]model.ChecksumEntry, error) {
	var out []model.ChecksumEntry
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ' ')
		if idx < 0 {
			continue
		}
		out = append(out, model.ChecksumEntry{Digest: line[:idx], Path: line[idx+1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "manifest: reading checksum list")
	}
	return out, nil
}

// EmitChecksums serializes a checksum list.
func EmitChecksums(entries []model.ChecksumEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s\n", e.Digest, e.Path)
	}
	return buf.Bytes()
}

// --- metadata ---
//
// Key=Value, one per line; unknown keys are ignored.

const (
	keyPackageID         = "PackageID"
	keyArch              = "Arch"
	keyVersionString     = "VersionString"
	keyPackageGeneration = "PackageGeneration"
	keyDescription       = "Description"
	keyPreInstall        = "PreInstall"
	keyPostInstall       = "PostInstall"
	keyPreUninstall      = "PreUninstall"
	keyPostUninstall     = "PostUninstall"
	keyPreUpdate         = "PreUpdate"
	keyPostUpdate        = "PostUpdate"
)

// metadataKeyOrder is the stable emission order used by EmitMetadata.
var metadataKeyOrder = []string{
	keyPackageID, keyArch, keyVersionString, keyPackageGeneration, keyDescription,
	keyPreInstall, keyPostInstall, keyPreUninstall, keyPostUninstall, keyPreUpdate, keyPostUpdate,
}

// ParseMetadata parses the Key=Value metadata grammar into a Package.
// PackageGeneration defaults to 0 when absent.
func ParseMetadata(buf []byte) (*model.Package, error) {
	pkg := &model.Package{}

	scanner := bufio.NewScanner(bytes.NewReader(buf))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key, value := line[:eq], line[eq+1:]
		switch key {
		case keyPackageID:
			pkg.PackageID = value
		case keyArch:
			pkg.Arch = value
		case keyVersionString:
			pkg.VersionString = value
		case keyPackageGeneration:
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "manifest: invalid PackageGeneration %q", value)
			}
			pkg.PackageGeneration = uint(n)
		case keyDescription:
			pkg.Description = value
		case keyPreInstall:
			pkg.Cmds.PreInstall = value
		case keyPostInstall:
			pkg.Cmds.PostInstall = value
		case keyPreUninstall:
			pkg.Cmds.PreUninstall = value
		case keyPostUninstall:
			pkg.Cmds.PostUninstall = value
		case keyPreUpdate:
			pkg.Cmds.PreUpdate = value
		case keyPostUpdate:
			pkg.Cmds.PostUpdate = value
		default:
			// unknown keys are ignored, per grammar
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "manifest: reading metadata")
	}
	if pkg.PackageID == "" || pkg.Arch == "" || pkg.VersionString == "" {
		return nil, errors.New("manifest: metadata missing a required field (PackageID, Arch, VersionString)")
	}
	return pkg, nil
}

// EmitMetadata serializes pkg's metadata, writing keys in metadataKeyOrder
// and omitting empty optional fields.
func EmitMetadata(pkg *model.Package) []byte {
	var buf bytes.Buffer
	values := map[string]string{
		keyPackageID:         pkg.PackageID,
		keyArch:              pkg.Arch,
		keyVersionString:     pkg.VersionString,
		keyPackageGeneration: strconv.FormatUint(uint64(pkg.PackageGeneration), 10),
		keyDescription:       pkg.Description,
		keyPreInstall:        pkg.Cmds.PreInstall,
		keyPostInstall:       pkg.Cmds.PostInstall,
		keyPreUninstall:      pkg.Cmds.PreUninstall,
		keyPostUninstall:     pkg.Cmds.PostUninstall,
		keyPreUpdate:         pkg.Cmds.PreUpdate,
		keyPostUpdate:        pkg.Cmds.PostUpdate,
	}
	for _, key := range metadataKeyOrder {
		v := values[key]
		if v == "" && key != keyPackageID && key != keyArch && key != keyVersionString && key != keyPackageGeneration {
			continue
		}
		fmt.Fprintf(&buf, "%s=%s\n", key, v)
	}
	return buf.Bytes()
}
