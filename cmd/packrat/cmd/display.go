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
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/subsentient/packrat/internal/config"
	"github.com/subsentient/packrat/internal/store"
)

var displayFlags struct {
	catalog   bool
	packageID string
}

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "List installed packages, or search configured repository catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if displayFlags.catalog {
			return displayCatalog(cmd)
		}
		return displayInstalled(cmd)
	},
}

func displayInstalled(cmd *cobra.Command) error {
	pkgs, err := store.ListInstalled(rootFlags.sysroot)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Package", "Arch", "Version", "Generation", "Description"})
	for _, pkg := range pkgs {
		table.Append([]string{
			pkg.PackageID, pkg.Arch, pkg.VersionString,
			strconv.FormatUint(uint64(pkg.PackageGeneration), 10), pkg.Description,
		})
	}
	table.Render()
	return nil
}

func displayCatalog(cmd *cobra.Command) error {
	cfg, err := config.Load(rootFlags.sysroot)
	if err != nil {
		return err
	}

	var packageID *string
	if displayFlags.packageID != "" {
		packageID = &displayFlags.packageID
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "Package", "Arch", "Version", "Generation", "Description"})

	for _, repo := range cfg.Repos {
		path := store.CatalogDBPath(rootFlags.sysroot, repo.Name, repo.Arch)
		entries, err := store.SearchCatalog(path, packageID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			table.Append([]string{
				repo.Name, e.PackageID, e.Arch, e.VersionString,
				strconv.FormatUint(uint64(e.PackageGeneration), 10), e.Description,
			})
		}
	}
	table.Render()
	return nil
}

func init() {
	displayCmd.Flags().BoolVar(&displayFlags.catalog, "catalog", false, "search repository catalogs instead of installed packages")
	displayCmd.Flags().StringVar(&displayFlags.packageID, "pkgid", "", "restrict catalog search to this package identifier")
	RootCmd.AddCommand(displayCmd)
}
