/*
Copyright 2024 The Cryoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrVariableNotFound is returned when the named variable is not in the store.
	ErrVariableNotFound = errors.New("variable not found in record store")
	// ErrRecordNotFound is returned when a record index has no data.
	ErrRecordNotFound = errors.New("record not found in record store")
	// ErrGridSizeMismatch is returned when record data does not match the
	// variable's registered grid size.
	ErrGridSizeMismatch = errors.New("record length does not match variable grid size")
)

// ReadError wraps a backend failure while reading a record. It is propagated
// verbatim to the caller; retrying the same read cannot change the outcome.
type ReadError struct {
	Name  string
	Index int
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading record %d of %q: %s", e.Index, e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
