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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subsentient/packrat/internal/action"
	"github.com/subsentient/packrat/internal/config"
)

var updateCmd = &cobra.Command{
	Use:     "update <package-file>",
	Aliases: []string{"upgrade"},
	Short:   "Update an installed package to a new version",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkgFile, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.Load(rootFlags.sysroot)
		if err != nil {
			return err
		}

		pkg, err := action.Update(cfg, rootFlags.sysroot, pkgFile, action.DefaultHookRunner{})
		if err != nil {
			return err
		}

		cmd.Printf("updated %s\n", pkg.Ref())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(updateCmd)
}
