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
	"github.com/subsentient/packrat/internal/config"
	"github.com/subsentient/packrat/internal/model"
)

var createPkgFlags struct {
	pkgID             string
	arch              string
	versionString     string
	packageGeneration uint
	description       string
	directory         string
	outDir            string
	buildConfig       string

	preInstallCmd    string
	postInstallCmd   string
	preUninstallCmd  string
	postUninstallCmd string
	preUpdateCmd     string
	postUpdateCmd    string
}

var createPkgCmd = &cobra.Command{
	Use:   "createpkg",
	Short: "Build a package archive from a directory of files",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := config.LoadBuildConfig(createPkgFlags.buildConfig)
		if err != nil {
			return err
		}

		// Flags given explicitly on the command line always win; an unset
		// flag falls back to the TOML build-defaults file (SPEC_FULL.md §4.11).
		flags := cmd.Flags()
		if !flags.Changed("pkgid") && bc.PackageID != "" {
			createPkgFlags.pkgID = bc.PackageID
		}
		if !flags.Changed("arch") && bc.Arch != "" {
			createPkgFlags.arch = bc.Arch
		}
		if !flags.Changed("description") && bc.Description != "" {
			createPkgFlags.description = bc.Description
		}

		pkg := &model.Package{
			PackageID:         createPkgFlags.pkgID,
			Arch:              createPkgFlags.arch,
			VersionString:     createPkgFlags.versionString,
			PackageGeneration: createPkgFlags.packageGeneration,
			Description:       createPkgFlags.description,
			Cmds: model.Cmds{
				PreInstall:    createPkgFlags.preInstallCmd,
				PostInstall:   createPkgFlags.postInstallCmd,
				PreUninstall:  createPkgFlags.preUninstallCmd,
				PostUninstall: createPkgFlags.postUninstallCmd,
				PreUpdate:     createPkgFlags.preUpdateCmd,
				PostUpdate:    createPkgFlags.postUpdateCmd,
			},
		}

		outFile, err := action.CreatePackage(pkg, createPkgFlags.directory, createPkgFlags.outDir)
		if err != nil {
			return err
		}

		cmd.Printf("built %s\n", outFile)
		return nil
	},
}

func init() {
	f := createPkgCmd.Flags()
	f.StringVar(&createPkgFlags.pkgID, "pkgid", "", "package identifier (required)")
	f.StringVar(&createPkgFlags.arch, "arch", "noarch", "package architecture")
	f.StringVar(&createPkgFlags.versionString, "versionstring", "", "package version string (required)")
	f.UintVar(&createPkgFlags.packageGeneration, "packagegeneration", 0, "build counter within the version")
	f.StringVar(&createPkgFlags.description, "description", "", "package description")
	f.StringVar(&createPkgFlags.directory, "directory", "", "directory of files to stage (required)")
	f.StringVar(&createPkgFlags.outDir, "file", ".", "output directory for the built .pkrt")
	f.StringVar(&createPkgFlags.buildConfig, "buildconfig", "packrat-build.toml", "TOML file supplying defaults for unset metadata flags")
	f.StringVar(&createPkgFlags.preInstallCmd, "preinstallcmd", "", "PreInstall hook command")
	f.StringVar(&createPkgFlags.postInstallCmd, "postinstallcmd", "", "PostInstall hook command")
	f.StringVar(&createPkgFlags.preUninstallCmd, "preuninstallcmd", "", "PreUninstall hook command")
	f.StringVar(&createPkgFlags.postUninstallCmd, "postuninstallcmd", "", "PostUninstall hook command")
	f.StringVar(&createPkgFlags.preUpdateCmd, "preupdatecmd", "", "PreUpdate hook command")
	f.StringVar(&createPkgFlags.postUpdateCmd, "postupdatecmd", "", "PostUpdate hook command")

	RootCmd.AddCommand(createPkgCmd)
}
