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
	"database/sql"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/model"
)

const installedSchema = `
CREATE TABLE installed (
	PackageID         TEXT NOT NULL,
	Arch              TEXT NOT NULL,
	VersionString     TEXT NOT NULL,
	PackageGeneration INTEGER NOT NULL,
	Description       TEXT,
	PreInstall        TEXT,
	PostInstall       TEXT,
	PreUninstall      TEXT,
	PostUninstall     TEXT,
	PreUpdate         TEXT,
	PostUpdate        TEXT,
	FileList          TEXT NOT NULL,
	Checksums         TEXT NOT NULL,
	PRIMARY KEY (PackageID, Arch)
);`

// InitializeEmpty overwrites the installed DB file at sysroot with a fresh,
// empty schema (the "initdb" CLI action, spec.md §3 lifecycle).
func InitializeEmpty(sysroot string) error {
	path := InstalledDBPath(sysroot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "store: creating %s", filepath.Dir(path))
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "store: removing existing %s", path)
	}

	db, err := openForWrite(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := db.Exec(installedSchema); err != nil {
		return errors.Wrap(err, "store: creating installed schema")
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// SavePackage inserts pkg into the installed DB, slurping fileListPath and
// checksumsPath into text columns. Empty optional hook commands become
// NULL (spec.md §4.6).
func SavePackage(pkg *model.Package, fileListPath, checksumsPath, sysroot string) error {
	fileList, err := ioutil.ReadFile(fileListPath)
	if err != nil {
		return errors.Wrapf(err, "store: reading %s", fileListPath)
	}
	checksums, err := ioutil.ReadFile(checksumsPath)
	if err != nil {
		return errors.Wrapf(err, "store: reading %s", checksumsPath)
	}

	// An empty file list is a legitimate metapackage (spec.md §8 boundary
	// case); I1 requires the FileList/Checksums columns to be non-NULL, not
	// non-empty, and "" satisfies a NOT NULL TEXT column.
	db, err := openForWrite(InstalledDBPath(sysroot))
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(`INSERT INTO installed
		(PackageID, Arch, VersionString, PackageGeneration, Description,
		 PreInstall, PostInstall, PreUninstall, PostUninstall, PreUpdate, PostUpdate,
		 FileList, Checksums)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.PackageID, pkg.Arch, pkg.VersionString, pkg.PackageGeneration, nullable(pkg.Description),
		nullable(pkg.Cmds.PreInstall), nullable(pkg.Cmds.PostInstall),
		nullable(pkg.Cmds.PreUninstall), nullable(pkg.Cmds.PostUninstall),
		nullable(pkg.Cmds.PreUpdate), nullable(pkg.Cmds.PostUpdate),
		string(fileList), string(checksums))
	if err != nil {
		return errors.Wrapf(err, "store: inserting %s", pkg.Ref())
	}
	return nil
}

// LoadPackage looks up (id, arch) and returns its metadata and hooks, but
// not the file-list/checksum blobs (use GetFilesInfo for those). Returns
// (nil, nil) if no such row exists.
func LoadPackage(id, arch, sysroot string) (*model.Package, error) {
	db, err := openForRead(InstalledDBPath(sysroot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	row := db.QueryRow(`SELECT PackageID, Arch, VersionString, PackageGeneration, Description,
		PreInstall, PostInstall, PreUninstall, PostUninstall, PreUpdate, PostUpdate
		FROM installed WHERE PackageID = ? AND Arch = ?`, id, arch)

	pkg := &model.Package{}
	var desc, pre, post, preU, postU, preUp, postUp sql.NullString
	err = row.Scan(&pkg.PackageID, &pkg.Arch, &pkg.VersionString, &pkg.PackageGeneration, &desc,
		&pre, &post, &preU, &postU, &preUp, &postUp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "store: loading %s.%s", id, arch)
	}
	pkg.Description = desc.String
	pkg.Cmds = model.Cmds{
		PreInstall: pre.String, PostInstall: post.String,
		PreUninstall: preU.String, PostUninstall: postU.String,
		PreUpdate: preUp.String, PostUpdate: postUp.String,
	}
	return pkg, nil
}

// GetFilesInfo fetches the FileList and Checksums blobs for (id, arch).
// Either return value is nil if the row doesn't exist.
func GetFilesInfo(id, arch, sysroot string) (fileList, checksums []byte, err error) {
	db, err := openForRead(InstalledDBPath(sysroot))
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	row := db.QueryRow(`SELECT FileList, Checksums FROM installed WHERE PackageID = ? AND Arch = ?`, id, arch)
	var fl, cs string
	if err := row.Scan(&fl, &cs); err == sql.ErrNoRows {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, errors.Wrapf(err, "store: loading files info for %s.%s", id, arch)
	}
	return []byte(fl), []byte(cs), nil
}

// DeletePackage removes the (id, arch) row.
func DeletePackage(id, arch, sysroot string) error {
	db, err := openForWrite(InstalledDBPath(sysroot))
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(`DELETE FROM installed WHERE PackageID = ? AND Arch = ?`, id, arch)
	if err != nil {
		return errors.Wrapf(err, "store: deleting %s.%s", id, arch)
	}
	return nil
}

// HasMultiArches reports whether two or more rows share PackageID (used by
// the uninstall ambiguity rule, spec.md P6).
func HasMultiArches(id, sysroot string) (bool, error) {
	db, err := openForRead(InstalledDBPath(sysroot))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		_ = db.Close()
	}()

	var count int
	row := db.QueryRow(`SELECT COUNT(*) FROM installed WHERE PackageID = ?`, id)
	if err := row.Scan(&count); err != nil {
		return false, errors.Wrapf(err, "store: counting arches for %s", id)
	}
	return count >= 2, nil
}

// Exists reports whether (id, arch) is already installed.
func Exists(id, arch, sysroot string) (bool, error) {
	pkg, err := LoadPackage(id, arch, sysroot)
	return pkg != nil, err
}

// ListInstalled returns every row of the installed DB, ordered by
// PackageID then Arch, for the "display" CLI action (spec.md §4.12).
func ListInstalled(sysroot string) ([]*model.Package, error) {
	db, err := openForRead(InstalledDBPath(sysroot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query(`SELECT PackageID, Arch, VersionString, PackageGeneration, Description
		FROM installed ORDER BY PackageID, Arch`)
	if err != nil {
		return nil, errors.Wrap(err, "store: listing installed packages")
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*model.Package
	for rows.Next() {
		pkg := &model.Package{}
		var desc sql.NullString
		if err := rows.Scan(&pkg.PackageID, &pkg.Arch, &pkg.VersionString, &pkg.PackageGeneration, &desc); err != nil {
			return nil, errors.Wrap(err, "store: scanning installed row")
		}
		pkg.Description = desc.String
		out = append(out, pkg)
	}
	return out, rows.Err()
}

// FindSoleArch returns the Arch of the single installed row for id, used
// to resolve an arch-less Uninstall once HasMultiArches has ruled out
// ambiguity. ok is false if no row exists for id.
func FindSoleArch(id, sysroot string) (arch string, ok bool, err error) {
	db, err := openForRead(InstalledDBPath(sysroot))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer func() {
		_ = db.Close()
	}()

	row := db.QueryRow(`SELECT Arch FROM installed WHERE PackageID = ? LIMIT 1`, id)
	if err := row.Scan(&arch); err == sql.ErrNoRows {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "store: resolving sole arch for %s", id)
	}
	return arch, true, nil
}
