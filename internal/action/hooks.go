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

import (
	"os/exec"

	packratlog "github.com/subsentient/packrat/internal/log"
)

// HookRunner is the sandboxed subprocess helper collaborator of spec.md
// §1/§6: "Shell execution of hook commands is delegated to a sandboxed
// subprocess helper whose contract is given but whose internals are not
// specified." Run executes command with working directory "/" inside
// sysroot and returns its exit status.
type HookRunner interface {
	Run(sysroot, command string) (exitStatus int, err error)
}

// DefaultHookRunner is a minimal, non-chrooted fallback: it runs the
// command via /bin/sh -c with its working directory set to sysroot.
// spec.md §4.9 permits this for "an implementation that cannot chroot
// (insufficient privilege)". A privileged deployment is expected to supply
// a HookRunner that actually chroots into sysroot first.
type DefaultHookRunner struct{}

// Run implements HookRunner.
func (DefaultHookRunner) Run(sysroot, command string) (int, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	if sysroot != "" {
		cmd.Dir = sysroot
	} else {
		cmd.Dir = "/"
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// runHook executes command (a no-op if empty) and logs a warning on
// non-zero exit. A hook failure is never fatal to the action (spec.md §7).
func runHook(hooks HookRunner, sysroot, command, label string) {
	if command == "" {
		return
	}
	status, err := hooks.Run(sysroot, command)
	if err != nil {
		packratlog.Warning(packratlog.Hook, "%s hook failed to execute: %v", label, err)
		return
	}
	if status != 0 {
		packratlog.Warning(packratlog.Hook, "%s hook exited %d", label, status)
	}
}
