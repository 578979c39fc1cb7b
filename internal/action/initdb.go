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

package action

import "github.com/subsentient/packrat/internal/store"

// InitializeDB runs the "mkdb"/"initdb" CLI action: it (re)creates the
// installed-package database for sysroot from scratch (spec.md §3
// lifecycle: "The installed DB is initialized once (explicit initdb
// action) and persists across runs").
func InitializeDB(sysroot string) error {
	if err := store.InitializeEmpty(sysroot); err != nil {
		return wrap(KindDBFailure, "", "initialize database", err)
	}
	return nil
}
