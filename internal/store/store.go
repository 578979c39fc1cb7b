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

// Package store implements the two relational stores of spec.md §4.6/§4.7:
// the single installed-package database per sysroot, and one catalog
// database per (repository, architecture). Both back onto SQLite via
// database/sql + github.com/mattn/go-sqlite3, grounded on the table layout
// and short-lived-connection discipline of a repository-catalog manager
// (other_examples/essentialkaos-rep's repo/repository.go), composed with
// the teacher's own habit of treating its on-disk manifests as opened,
// read, and discarded per call rather than kept resident
// (swupd/manifest.go, swupd/create_manifests.go).
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	// Registers the "sqlite3" driver used by every Open* function below.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// InstalledDBPath returns <sysroot>/var/packrat/pkgdb/installed.db.
func InstalledDBPath(sysroot string) string {
	return filepath.Join(sysroot, "var", "packrat", "pkgdb", "installed.db")
}

// CatalogDBPath returns <sysroot>/var/packrat/pkgdb/catalogs/<repo>/catalog.<arch>.db.
//
// spec.md §4.7 describes one catalog file per (repo, arch), but §6's
// on-disk layout names the path without a repo component
// (.../catalogs/catalog.<arch>.db); this implementation nests each catalog
// under a per-repo directory, so the returned path always carries the repo
// component, even on a single-repository sysroot.
func CatalogDBPath(sysroot, repo, arch string) string {
	return filepath.Join(sysroot, "var", "packrat", "pkgdb", "catalogs", repo, "catalog."+arch+".db")
}

// openForWrite opens (creating parent directories as needed) a SQLite
// connection to path, each call short-lived per spec.md §4.6
// ("operations are short transactions; the store is opened and closed per
// call").
func openForWrite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "store: creating %s", filepath.Dir(path))
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s", path)
	}
	return db, nil
}

// openForRead opens an existing SQLite file read-only-by-convention (the
// driver itself doesn't enforce read-only; callers simply don't issue
// writes). Returns a "does not exist" sentinel via os.IsNotExist so callers
// can distinguish "no catalog yet" from a real failure.
func openForRead(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s", path)
	}
	return db, nil
}
