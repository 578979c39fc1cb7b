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
	"github.com/spf13/cobra"

	"github.com/subsentient/packrat/internal/action"
)

var mkdbCmd = &cobra.Command{
	Use:   "mkdb",
	Short: "Initialize (or reinitialize) the installed-package database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := action.InitializeDB(rootFlags.sysroot); err != nil {
			return err
		}
		cmd.Println("database initialized")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(mkdbCmd)
}
