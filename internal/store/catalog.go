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
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/model"
)

const catalogSchema = `
CREATE TABLE catalog (
	PackageID         TEXT NOT NULL,
	Arch              TEXT NOT NULL,
	VersionString     TEXT NOT NULL,
	PackageGeneration INTEGER NOT NULL,
	Description       TEXT,
	Dependencies      TEXT,
	PRIMARY KEY (PackageID, Arch)
);`

// CatalogEntry is one row of a repository's catalog database.
type CatalogEntry struct {
	PackageID         string
	Arch              string
	VersionString     string
	PackageGeneration uint
	Description       string
	Dependencies      []model.Dependency
}

// EncodeDependencies renders deps as newline-separated "PackageID.Arch"
// entries (spec.md §4.7). MinimumVersion, when present, is appended after
// a '@' so it round-trips: "PackageID.Arch@MinimumVersion".
func EncodeDependencies(deps []model.Dependency) string {
	lines := make([]string, 0, len(deps))
	for _, d := range deps {
		line := d.PackageID + "." + d.Arch
		if d.MinimumVersion != "" {
			line += "@" + d.MinimumVersion
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// DecodeDependencies parses the format written by EncodeDependencies.
func DecodeDependencies(s string) []model.Dependency {
	if s == "" {
		return nil
	}
	var out []model.Dependency
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		idArch := line
		minVer := ""
		if at := strings.IndexByte(line, '@'); at >= 0 {
			idArch = line[:at]
			minVer = line[at+1:]
		}
		dot := strings.LastIndexByte(idArch, '.')
		if dot < 0 {
			continue
		}
		out = append(out, model.Dependency{
			PackageID:      idArch[:dot],
			Arch:           idArch[dot+1:],
			MinimumVersion: minVer,
		})
	}
	return out
}

// InitializeEmptyCatalog overwrites the catalog DB file at path with a
// fresh, empty schema.
func InitializeEmptyCatalog(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "store: removing existing catalog %s", path)
	}
	db, err := openForWrite(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := db.Exec(catalogSchema); err != nil {
		return errors.Wrap(err, "store: creating catalog schema")
	}
	return nil
}

// AddCatalogEntry inserts (or replaces) one row in the catalog at path.
func AddCatalogEntry(path string, entry CatalogEntry) error {
	db, err := openForWrite(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(`INSERT OR REPLACE INTO catalog
		(PackageID, Arch, VersionString, PackageGeneration, Description, Dependencies)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.PackageID, entry.Arch, entry.VersionString, entry.PackageGeneration,
		nullable(entry.Description), nullable(EncodeDependencies(entry.Dependencies)))
	if err != nil {
		return errors.Wrapf(err, "store: adding catalog entry %s.%s", entry.PackageID, entry.Arch)
	}
	return nil
}

// SearchCatalog returns all entries matching packageID, or every entry if
// packageID is nil (spec.md §4.7).
func SearchCatalog(path string, packageID *string) ([]CatalogEntry, error) {
	db, err := openForRead(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	query := `SELECT PackageID, Arch, VersionString, PackageGeneration, Description, Dependencies FROM catalog`
	args := []interface{}{}
	if packageID != nil {
		query += ` WHERE PackageID = ?`
		args = append(args, *packageID)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "store: searching catalog %s", path)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var desc, deps sql.NullString
		if err := rows.Scan(&e.PackageID, &e.Arch, &e.VersionString, &e.PackageGeneration, &desc, &deps); err != nil {
			return nil, errors.Wrap(err, "store: scanning catalog row")
		}
		e.Description = desc.String
		e.Dependencies = DecodeDependencies(deps.String)
		out = append(out, e)
	}
	return out, rows.Err()
}
