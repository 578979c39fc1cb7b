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

// Package archive implements the package-archive handler of spec.md §4.4:
// mounting/extracting a .pkrt file into a scratch directory, compressing a
// staging tree into a .pkrt, and managing per-run cache directories.
//
// Of the two backends spec.md allows (streaming archive extraction, or a
// read-only loop-mounted image), this package implements the streaming
// archive backend (DESIGN.md Open Question decision), grounded on the
// teacher's CompressedTarReader (swupd/archive.go) and UnpackFile/RunCommand
// helpers (helpers/helpers.go).
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	packratlog "github.com/subsentient/packrat/internal/log"
)

// Compression algorithms carry "magic" bytes at the start of the file; used
// to detect whether a .pkrt was compressed, matching the teacher's sniffing
// approach in NewCompressedTarReader.
var gzipMagic = []byte{0x1F, 0x8B}

// infoDir and filesDir are the two subtrees every package archive and
// staging directory carries (spec.md §6).
const (
	infoDir  = "info"
	filesDir = "files"
)

// Mount extracts pkgFile (an absolute path to a .pkrt) directly into
// cacheDir, creating it if needed, and returns cacheDir.
// The returned tree has ./info and ./files subdirectories per spec.md §6.
func Mount(pkgFile, cacheDir string) (string, error) {
	if !filepath.IsAbs(pkgFile) {
		return "", errors.Errorf("archive: pkgFile must be absolute, got %q", pkgFile)
	}

	f, err := os.Open(pkgFile)
	if err != nil {
		return "", errors.Wrapf(err, "archive: opening %s", pkgFile)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err == nil {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrap(err, "archive: seeking to start")
		}
		if bytes.Equal(magic[:], gzipMagic) {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return "", errors.Wrapf(err, "archive: %s is not a valid gzip stream", pkgFile)
			}
			defer func() {
				_ = gz.Close()
			}()
			r = gz
		}
	}

	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return "", errors.Wrapf(err, "archive: creating %s", cacheDir)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "archive: reading %s", pkgFile)
		}

		out := filepath.Join(cacheDir, hdr.Name)
		if err := extractEntry(hdr, tr, out); err != nil {
			return "", errors.Wrapf(err, "archive: extracting %s", hdr.Name)
		}
	}

	if _, err := os.Stat(filepath.Join(cacheDir, infoDir)); err != nil {
		return "", errors.Errorf("archive: %s has no info/ directory; malformed package", pkgFile)
	}
	return cacheDir, nil
}

func extractEntry(hdr *tar.Header, tr *tar.Reader, out string) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(out, os.FileMode(hdr.Mode)|0700)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
			return err
		}
		of, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)|0600)
		if err != nil {
			return err
		}
		_, err = io.Copy(of, tr)
		closeErr := of.Close()
		if err != nil {
			return err
		}
		return closeErr
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
			return err
		}
		return os.Symlink(hdr.Linkname, out)
	default:
		// Skip anything else (extended headers, devices) rather than abort.
		return nil
	}
}

// CompressPackage writes outFile as a single gzip-compressed tar archive
// containing the full tree rooted at stagingDir.
func CompressPackage(stagingDir, outFile string) error {
	out, err := os.Create(outFile)
	if err != nil {
		return errors.Wrapf(err, "archive: creating %s", outFile)
	}
	defer func() {
		_ = out.Close()
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err = filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "archive: compressing %s", stagingDir)
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "archive: closing tar writer")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "archive: closing gzip writer")
	}
	return out.Close()
}

// cacheRoot returns <sysroot>/var/packrat/cache.
func cacheRoot(sysroot string) string {
	return filepath.Join(sysroot, "var", "packrat", "cache")
}

// CreateTempCacheDir creates and returns a fresh 0700 directory under
// <sysroot>/var/packrat/cache/ whose name carries enough entropy that
// collisions within a run are vanishingly unlikely (spec.md I6).
func CreateTempCacheDir(sysroot string) (string, error) {
	root := cacheRoot(sysroot)
	if err := os.MkdirAll(root, 0700); err != nil {
		return "", errors.Wrapf(err, "archive: creating %s", root)
	}

	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", errors.Wrap(err, "archive: generating cache directory name")
	}
	name := fmt.Sprintf("packrat_cache_%s", hex.EncodeToString(raw[:]))
	dir := filepath.Join(root, name)

	if err := os.Mkdir(dir, 0700); err != nil {
		return "", errors.Wrapf(err, "archive: creating %s", dir)
	}
	return dir, nil
}

// DeleteTempCacheDir removes a cache directory created by CreateTempCacheDir
// (or a scratch directory returned by Mount). It never returns an error to
// a caller that has already decided the action's outcome; log and move on
// (spec.md §7 "teardown errors are logged, never propagated").
func DeleteTempCacheDir(path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		packratlog.Warning(packratlog.Archive, "failed to remove cache directory %s: %v", path, err)
	}
}

// InfoDir and FilesDir return the canonical subtrees of a mounted or
// staged package tree.
func InfoDir(root string) string  { return filepath.Join(root, infoDir) }
func FilesDir(root string) string { return filepath.Join(root, filesDir) }
