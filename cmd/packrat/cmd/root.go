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

// Package cmd is the packrat CLI surface: a cobra command tree that
// converts flags into the internal/action configuration structs, and
// renders results for the console. It is a thin external collaborator
// over internal/action — the core packages never import cobra or this
// package (spec.md §1, §6). Grounded on the teacher's mixer/cmd/root.go
// RootCmd + persistent-flag pattern.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subsentient/packrat/internal/log"
)

var rootFlags struct {
	sysroot string
	verbose bool
}

// RootCmd is the base command when packrat is called without a subcommand.
var RootCmd = &cobra.Command{
	Use:   "packrat",
	Short: "Install, update, uninstall, and build binary software packages",
	Long:  `packrat installs, updates, uninstalls, and builds binary software packages against a target filesystem root.`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootFlags.verbose {
			log.SetLevel(log.LevelVerbose)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&rootFlags.sysroot, "sysroot", "/", "target filesystem root")
	RootCmd.PersistentFlags().BoolVar(&rootFlags.verbose, "verbose", false, "enable verbose logging")
}

// fail prints a user-visible error and exits non-zero. Every subcommand's
// RunE returns an error instead of calling this directly, letting cobra
// print it through the same path; this helper exists for the narrow case
// of a precondition failure before the cobra command tree is entered.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "packrat: "+format+"\n", args...)
	os.Exit(1)
}
