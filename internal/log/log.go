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

// Package log provides the leveled, tag-based logger used across packrat.
package log

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Specifies the log levels.
const (
	LevelError = iota + 1
	LevelWarning
	LevelInfo
	LevelDebug
	LevelVerbose // same as Debug, but without the repeat-line filtering
)

// Specifies the component tags used to prefix log lines.
const (
	Core        = "PACKRAT"
	Archive     = "ARCHIVE"
	DB          = "DB"
	Hook        = "HOOK"
	Materialize = "MATERIALIZE"
	Builder     = "BUILDER"
)

var (
	level      = LevelInfo
	levelMap   = map[int]string{}
	fileHandle *os.File
	lineLast   string
	lineCount  int
)

func init() {
	levelMap[LevelError] = "ERROR"
	levelMap[LevelWarning] = "WARNING"
	levelMap[LevelInfo] = "INFO"
	levelMap[LevelDebug] = "DEBUG"
	levelMap[LevelVerbose] = "VERBOSE"
}

// SetLevel sets the default log level, clamping to the valid range.
func SetLevel(l int) {
	if l < LevelError {
		level = LevelError
	} else if l > LevelVerbose {
		level = LevelVerbose
	} else {
		level = l
	}
}

// SetOutputFile redirects log output from stderr to the given file.
func SetOutputFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	fileHandle = f
	return f, nil
}

func writeLine(levelTag, component, msg string) {
	line := fmt.Sprintf("[%s] [%s] %s", levelTag, component, msg)

	// Collapse consecutive identical lines at the same level, matching the
	// teacher's repeat-line suppression; Verbose bypasses this.
	if line == lineLast {
		lineCount++
		return
	}
	if lineCount > 0 {
		emit(fmt.Sprintf("[%s] [%s] (previous line repeated %d times)", levelTag, component, lineCount))
		lineCount = 0
	}
	lineLast = line
	emit(line)
}

func emit(line string) {
	out := os.Stderr
	if fileHandle != nil {
		fmt.Fprintln(fileHandle, line)
		return
	}
	log.New(out, "", log.LstdFlags).Println(line)
}

// Error logs a message at LevelError. Always printed.
func Error(component, format string, args ...interface{}) {
	writeLine("ERROR", component, fmt.Sprintf(format, args...))
}

// Warning logs a message at LevelWarning.
func Warning(component, format string, args ...interface{}) {
	if level < LevelWarning {
		return
	}
	writeLine("WARNING", component, fmt.Sprintf(format, args...))
}

// Info logs a message at LevelInfo.
func Info(component, format string, args ...interface{}) {
	if level < LevelInfo {
		return
	}
	writeLine("INFO", component, fmt.Sprintf(format, args...))
}

// Debug logs a message at LevelDebug.
func Debug(component, format string, args ...interface{}) {
	if level < LevelDebug {
		return
	}
	writeLine("DEBUG", component, fmt.Sprintf(format, args...))
}

// Verbose logs a message at LevelVerbose, bypassing repeat-line suppression.
func Verbose(component, format string, args ...interface{}) {
	if level < LevelVerbose {
		return
	}
	emit(fmt.Sprintf("[VERBOSE] [%s] %s", component, fmt.Sprintf(format, args...)))
}

// FormatPackageRef renders the "<PackageID>_<VersionString>-<PackageGeneration>.<Arch>"
// reference string used in user-visible error messages (spec.md §7).
func FormatPackageRef(pkgID, version string, generation uint, arch string) string {
	return fmt.Sprintf("%s_%s-%d.%s", pkgID, version, generation, arch)
}

// Redact strips any embedded newlines from a value before it's interpolated
// into a log line, so a malicious path/command can't forge extra log lines.
func Redact(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
