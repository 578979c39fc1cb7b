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

package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// BuildConfig supplies sane defaults for CreatePackage's metadata fields
// when the CLI caller doesn't give them explicitly (SPEC_FULL.md §4.11),
// grounded on the teacher's MixConfig/LoadDefaults pattern
// (config/config.go). Unlike the sysroot's packrat.conf, this file is only
// consulted by the createpkg path, never by install/update/uninstall.
type BuildConfig struct {
	PackageID   string `toml:"PACKAGE_ID"`
	Arch        string `toml:"ARCH"`
	Description string `toml:"DESCRIPTION"`

	filename string
}

// LoadBuildConfig reads a TOML build-defaults file. A missing file is not
// an error: LoadDefaults already populated sane zero values.
func LoadBuildConfig(path string) (*BuildConfig, error) {
	bc := &BuildConfig{filename: path}
	bc.LoadDefaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return bc, nil
	}

	if _, err := toml.DecodeFile(path, bc); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}
	return bc, nil
}

// LoadDefaults sets sane values for the build-config properties, mirroring
// the teacher's MixConfig.LoadDefaults.
func (bc *BuildConfig) LoadDefaults() {
	if bc.Arch == "" {
		bc.Arch = "noarch"
	}
}
