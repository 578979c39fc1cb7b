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

// Package action implements the five action state machines of spec.md
// §4.9: Install, Update, Uninstall, ReverseInstall, CreatePackage. Each
// composes the checksum engine, file operations, passwd resolver, archive
// handler, manifest codec, and installed-state store behind the single
// sequenced skeleton the spec describes, with teardown running on every
// exit path. Grounded on the teacher's own top-level sequencing
// (mixer/cmd/build.go's ordered steps with deferred cleanup) and
// builder/update.go.
package action

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error kinds surfaced by the core (spec.md §7).
type Kind int

const (
	KindConfigMissing Kind = iota
	KindArchUnsupported
	KindAlreadyInstalled
	KindNotInstalled
	KindAmbiguousPackage
	KindPackageMalformed
	KindChecksumMismatch
	KindExtractFailed
	KindMaterializeFailed
	KindDBFailure
	KindCritical
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "ConfigMissing"
	case KindArchUnsupported:
		return "ArchUnsupported"
	case KindAlreadyInstalled:
		return "AlreadyInstalled"
	case KindNotInstalled:
		return "NotInstalled"
	case KindAmbiguousPackage:
		return "AmbiguousPackage"
	case KindPackageMalformed:
		return "PackageMalformed"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindExtractFailed:
		return "ExtractFailed"
	case KindMaterializeFailed:
		return "MaterializeFailed"
	case KindDBFailure:
		return "DBFailure"
	case KindCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Error is the single exported error type returned by every action in this
// package. It names the package and the offending phase, per spec.md §7.
type Error struct {
	Kind       Kind
	PackageRef string // "<PackageID>_<VersionString>-<PackageGeneration>.<Arch>", may be empty before metadata is known
	Phase      string
	Cause      error
}

func newError(kind Kind, ref, phase string, cause error) *Error {
	return &Error{Kind: kind, PackageRef: ref, Phase: phase, Cause: cause}
}

// Error renders the single-line, human-facing message required by spec.md
// §7: the package reference and the offending phase. Critical additionally
// instructs the user that manual intervention is required.
func (e *Error) Error() string {
	ref := e.PackageRef
	if ref == "" {
		ref = "<unknown package>"
	}
	msg := fmt.Sprintf("%s: %s failed during %s", ref, e.Kind, e.Phase)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Kind == KindCritical {
		msg += " (on-disk state and installed database have diverged; manual intervention required)"
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

func wrap(kind Kind, ref, phase string, cause error) error {
	if cause == nil {
		return nil
	}
	return newError(kind, ref, phase, errors.WithStack(cause))
}
