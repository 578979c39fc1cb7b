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
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/subsentient/packrat/internal/checksum"
)

// Fetcher is the repository-mirror download collaborator (spec.md §1: out
// of scope for the core, specified only by interface). It supplies fetched
// bytes for a URL.
type Fetcher interface {
	Fetch(url string) ([]byte, error)
}

// CatalogIsFresh compares the sidecar digest at sidecarURL+".chksum"
// against the local catalog file's own digest (spec.md §4.7). It reports
// true when they match (no re-download needed).
func CatalogIsFresh(localPath, sidecarURL string, f Fetcher) (bool, error) {
	remote, err := f.Fetch(sidecarURL + ".chksum")
	if err != nil {
		return false, errors.Wrapf(err, "store: fetching %s.chksum", sidecarURL)
	}

	local, err := ioutil.ReadFile(localPath)
	if err != nil {
		return false, errors.Wrapf(err, "store: reading %s", localPath)
	}

	return string(remote) == checksum.HashBytes(local), nil
}
