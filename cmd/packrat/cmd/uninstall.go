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

var uninstallArch string

var uninstallCmd = &cobra.Command{
	Use:     "remove <package-id>",
	Aliases: []string{"uninstall"},
	Short:   "Uninstall a package from the sysroot",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arch *string
		if uninstallArch != "" {
			arch = &uninstallArch
		}

		pkg, err := action.Uninstall(rootFlags.sysroot, args[0], arch, action.DefaultHookRunner{})
		if err != nil {
			return err
		}

		cmd.Printf("removed %s\n", pkg.Ref())
		return nil
	},
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallArch, "arch", "", "architecture to remove, required when a package has multiple installed arches")
	RootCmd.AddCommand(uninstallCmd)
}
