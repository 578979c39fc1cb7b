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

// Package config loads the two configuration surfaces named in spec.md:
// the sysroot's /etc/packrat.conf (Key=Value, parsed with go-ini, as the
// teacher's swupd/config.go parses its own flat config file with the same
// library) and a TOML builder-defaults file in the style of the teacher's
// config/config.go MixConfig.
package config

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
)

// Config holds the process-wide, read-only state loaded once at action
// start (spec.md §5): the supported-arch set, the primary arch, the OS
// release tag, and the configured repositories.
type Config struct {
	SupportedArches []string
	PrimaryArch     string
	OSRelease       string
	Repos           []Repository
}

// Repository is one `Repo=<name>,<url>,<arch>,<priority>` entry (SPEC_FULL §3
// supplement, grounded on original_source/src/repos.cpp's repository list).
type Repository struct {
	Name     string
	URL      string
	Arch     string
	Priority int
}

// Load reads <sysroot>/etc/packrat.conf. Arch= may repeat; a leading '@'
// on one of them marks it primary. noarch is always implicitly supported
// regardless of what's configured (spec.md §9 Open Question decision).
func Load(sysroot string) (*Config, error) {
	path := filepath.Join(sysroot, "etc", "packrat.conf")

	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: loading %s", path)
	}

	c := &Config{}
	section := cfg.Section("")

	for _, key := range section.Keys() {
		if key.Name() != "Arch" {
			continue
		}
		for _, raw := range key.ValueWithShadows() {
			arch := raw
			primary := false
			if strings.HasPrefix(arch, "@") {
				primary = true
				arch = strings.TrimPrefix(arch, "@")
			}
			if arch == "" {
				continue
			}
			c.SupportedArches = append(c.SupportedArches, arch)
			if primary {
				c.PrimaryArch = arch
			}
		}
	}

	if v := section.Key("OSRelease").String(); v != "" {
		c.OSRelease = v
	}

	for _, raw := range section.Key("Repo").ValueWithShadows() {
		parts := strings.SplitN(raw, ",", 4)
		if len(parts) != 4 {
			continue
		}
		repo := Repository{Name: parts[0], URL: parts[1], Arch: parts[2]}
		if n, err := parseIntDefault(parts[3], 0); err == nil {
			repo.Priority = n
		}
		c.Repos = append(c.Repos, repo)
	}

	if c.PrimaryArch == "" && len(c.SupportedArches) > 0 {
		c.PrimaryArch = c.SupportedArches[0]
	}

	return c, nil
}

func parseIntDefault(s string, def int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def, err
	}
	return n, nil
}

// IsArchSupported reports whether arch may be installed. noarch is always
// supported (spec.md §9 Open Question decision).
func (c *Config) IsArchSupported(arch string) bool {
	if arch == "noarch" {
		return true
	}
	for _, a := range c.SupportedArches {
		if a == arch {
			return true
		}
	}
	return false
}
