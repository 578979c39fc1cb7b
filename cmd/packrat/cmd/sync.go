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

package cmd

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/subsentient/packrat/internal/config"
	"github.com/subsentient/packrat/internal/log"
	"github.com/subsentient/packrat/internal/store"
)

// httpFetcher fetches a URL's body over plain HTTP, grounded on the
// teacher's helpers.DownloadFileAsString (helpers/helpers.go).
type httpFetcher struct{}

func (httpFetcher) Fetch(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status %q fetching %s", resp.Status, url)
	}
	return ioutil.ReadAll(resp.Body)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh configured repository catalogs that are out of date",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootFlags.sysroot)
		if err != nil {
			return err
		}

		f := httpFetcher{}
		for _, repo := range cfg.Repos {
			path := store.CatalogDBPath(rootFlags.sysroot, repo.Name, repo.Arch)

			fresh, err := checkFreshness(path, repo.URL, f)
			if err != nil {
				return err
			}
			if fresh {
				log.Info(log.DB, "catalog for %s/%s is up to date", repo.Name, repo.Arch)
				continue
			}

			if err := refreshCatalog(path, repo.URL, f); err != nil {
				return err
			}
			log.Info(log.DB, "refreshed catalog for %s/%s", repo.Name, repo.Arch)
			cmd.Printf("synced %s (%s)\n", repo.Name, repo.Arch)
		}
		return nil
	},
}

// checkFreshness wraps store.CatalogIsFresh, treating "no local catalog yet"
// as stale rather than an error (spec.md §4.7).
func checkFreshness(path, url string, f store.Fetcher) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	return store.CatalogIsFresh(path, url, f)
}

// refreshCatalog downloads the repository's catalog database wholesale and
// replaces the local copy. packrat's catalogs are small SQLite files
// distributed in full rather than diffed (spec.md §4.7's Non-goals exclude
// delta sync).
func refreshCatalog(path, url string, f store.Fetcher) error {
	body, err := f.Fetch(url)
	if err != nil {
		return errors.Wrapf(err, "sync: fetching %s", url)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "sync: creating %s", filepath.Dir(path))
	}
	if err := ioutil.WriteFile(path, body, 0644); err != nil {
		return errors.Wrapf(err, "sync: writing %s", path)
	}
	return nil
}

func init() {
	RootCmd.AddCommand(syncCmd)
}
