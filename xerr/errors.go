// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package xerr defines the typed error kinds named in the PDP's error
// handling design: SyntaxError, ValidationError, CompilationError,
// AttributeBrokerError, RepositoryError and TrojanSourceError. Runtime
// errors inside expression evaluation are never represented here - they
// are reified as value.Error and flow as data, not as Go errors.
package xerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// SyntaxError marks a malformed policy document that never reached the
// compiler. Within this module the sourcedoc loader produces it for a
// document it cannot decode or lower into AST nodes.
type SyntaxError struct{ Detail string }

func (e SyntaxError) Error() string { return "syntax error: " + e.Detail }

func ErrSyntax(detail string) error { return errors.WithStack(SyntaxError{Detail: detail}) }

// ValidationError marks a structurally well-formed document that fails a
// static check (duplicate policy name, unexported rule reference, etc).
type ValidationError struct{ Detail string }

func (e ValidationError) Error() string { return "validation error: " + e.Detail }

func ErrValidation(format string, args ...any) error {
	return errors.WithStack(ValidationError{Detail: fmt.Sprintf(format, args...)})
}

// CompilationError marks a failure turning a validated AST node into a
// compiled expression (unknown function arity, unresolvable reference).
type CompilationError struct{ Detail string }

func (e CompilationError) Error() string { return "compilation error: " + e.Detail }

func ErrCompilation(format string, args ...any) error {
	return errors.WithStack(CompilationError{Detail: fmt.Sprintf(format, args...)})
}

// AttributeBrokerError covers PIP registration collisions and unknown
// library unloads (spec.md §4.4, §7).
type AttributeBrokerError struct{ Detail string }

func (e AttributeBrokerError) Error() string { return "attribute broker error: " + e.Detail }

func ErrAttributeBroker(format string, args ...any) error {
	return errors.WithStack(AttributeBrokerError{Detail: fmt.Sprintf(format, args...)})
}

// RepositoryError covers bad TTL/strategy values passed to the attribute
// repository (spec.md §4.5).
type RepositoryError struct{ Detail string }

func (e RepositoryError) Error() string { return "repository error: " + e.Detail }

func ErrRepository(format string, args ...any) error {
	return errors.WithStack(RepositoryError{Detail: fmt.Sprintf(format, args...)})
}

// TrojanSourceError aborts compilation of a document containing a
// disallowed bidirectional control code point (spec.md §4.10, §7).
type TrojanSourceError struct{ Detail string }

func (e TrojanSourceError) Error() string { return "trojan source rejected: " + e.Detail }

func ErrTrojanSource(format string, args ...any) error {
	return errors.WithStack(TrojanSourceError{Detail: fmt.Sprintf(format, args...)})
}

// NotFoundError is the generic "no such X" condition (policy, namespace,
// function, PIP).
type NotFoundError struct{ What string }

func (e NotFoundError) Error() string { return "not found: " + e.What }

func ErrNotFound(what string) error { return errors.WithStack(NotFoundError{What: what}) }
