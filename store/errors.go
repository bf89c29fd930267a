// Copyright 2025 Openshelf Labs
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


package store

import "errors"

var (
	// ErrMissingParent indicates a review references a parent_asin absent
	// from the metadata table. Under PolicyStrict this fails the batch.
	ErrMissingParent = errors.New("review references missing parent_asin")

	// ErrTransient marks a failure where retrying the same batch may
	// succeed: connection drops, serialization conflicts, timeouts.
	ErrTransient = errors.New("transient store failure")

	// ErrFatal marks a failure retrying cannot fix: schema mismatch,
	// permission problems, constraint violations other than the handled
	// foreign-key case.
	ErrFatal = errors.New("fatal store failure")

	// ErrVectorMismatch indicates the embedding slice is not index-aligned
	// with the record batch.
	ErrVectorMismatch = errors.New("vector count does not match record count")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store is closed")
)
