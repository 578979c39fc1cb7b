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

// Package idmap resolves user and group names to numeric IDs against a
// chosen sysroot's /etc/passwd and /etc/group, rather than the host's
// (spec.md §4.3). It is used both when materializing a package into a
// sysroot and when building a package against the host (sysroot "/").
package idmap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// User is one /etc/passwd entry. Shell and Home may be empty: the parser
// tolerates short lines missing trailing fields (spec.md §4.3).
type User struct {
	Name        string
	UID         int
	PrimaryGID  int
	GECOS       string
	Home        string
	Shell       string
}

// Group is one /etc/group entry.
type Group struct {
	Name string
	GID  int
}

// Resolver answers the four queries of spec.md §4.3 against one sysroot's
// passwd/group files, parsed once at construction.
type Resolver struct {
	usersByName  map[string]User
	usersByUID   map[int]User
	groupsByName map[string]Group
	groupsByGID  map[int]Group
}

// Load parses <sysroot>/etc/passwd and <sysroot>/etc/group. Either file may
// be absent, in which case the corresponding lookups always report
// "missing" rather than erroring — a sysroot under construction may not
// have its passwd database populated yet.
func Load(sysroot string) (*Resolver, error) {
	r := &Resolver{
		usersByName:  map[string]User{},
		usersByUID:   map[int]User{},
		groupsByName: map[string]Group{},
		groupsByGID:  map[int]Group{},
	}

	if err := r.loadPasswd(filepath.Join(sysroot, "etc", "passwd")); err != nil {
		return nil, err
	}
	if err := r.loadGroup(filepath.Join(sysroot, "etc", "group")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) loadPasswd(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "idmap: opening %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			// Too short to even carry a name:passwd:uid:gid; skip rather
			// than abort the whole file.
			continue
		}
		uid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		gid, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		u := User{Name: fields[0], UID: uid, PrimaryGID: gid}
		if len(fields) > 4 {
			u.GECOS = fields[4]
		}
		if len(fields) > 5 {
			u.Home = fields[5]
		}
		if len(fields) > 6 {
			u.Shell = fields[6]
		}
		r.usersByName[u.Name] = u
		r.usersByUID[u.UID] = u
	}
	return scanner.Err()
}

func (r *Resolver) loadGroup(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "idmap: opening %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			continue
		}
		gid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		g := Group{Name: fields[0], GID: gid}
		r.groupsByName[g.Name] = g
		r.groupsByGID[g.GID] = g
	}
	return scanner.Err()
}

// LookupUserName returns the uid and primary gid for name. ok is false if
// name is not present — a "missing" result, not an error (spec.md §4.3);
// callers decide whether that is fatal.
func (r *Resolver) LookupUserName(name string) (u User, ok bool) {
	// A bare numeric owner string (as may appear in a manifest built
	// against a sysroot with no matching passwd entry) is accepted as-is.
	if uid, err := strconv.Atoi(name); err == nil {
		if u, ok := r.usersByUID[uid]; ok {
			return u, true
		}
		return User{Name: name, UID: uid}, true
	}
	u, ok = r.usersByName[name]
	return u, ok
}

// LookupGroupName returns the gid for name.
func (r *Resolver) LookupGroupName(name string) (g Group, ok bool) {
	if gid, err := strconv.Atoi(name); err == nil {
		if g, ok := r.groupsByGID[gid]; ok {
			return g, true
		}
		return Group{Name: name, GID: gid}, true
	}
	g, ok = r.groupsByName[name]
	return g, ok
}

// LookupUserID returns the name for uid.
func (r *Resolver) LookupUserID(uid int) (u User, ok bool) {
	u, ok = r.usersByUID[uid]
	return u, ok
}

// LookupGroupID returns the name for gid.
func (r *Resolver) LookupGroupID(gid int) (g Group, ok bool) {
	g, ok = r.groupsByGID[gid]
	return g, ok
}

// ResolveOwnership translates the owner:group strings stored in a manifest
// entry into (uid, gid) against this resolver's sysroot. Missing names are
// reported via the returned error so callers can decide fatality per
// spec.md §7 (materialize treats a missing user as fatal; so does
// reverse-install and package-building).
func ResolveOwnership(r *Resolver, owner, group string) (uid, gid int, err error) {
	u, ok := r.LookupUserName(owner)
	if !ok {
		return 0, 0, fmt.Errorf("unknown user %q", owner)
	}
	g, ok := r.LookupGroupName(group)
	if !ok {
		return 0, 0, fmt.Errorf("unknown group %q", group)
	}
	return u.UID, g.GID, nil
}
