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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMetadataRecord indicates a MetadataRecord failed validation.
	ErrInvalidMetadataRecord = errors.New("invalid metadata record")

	// ErrInvalidReviewRecord indicates a ReviewRecord failed validation.
	ErrInvalidReviewRecord = errors.New("invalid review record")

	// ErrMissingParentASIN indicates the parent_asin field is empty.
	ErrMissingParentASIN = errors.New("parent_asin is required")

	// ErrMissingASIN indicates the asin field is empty.
	ErrMissingASIN = errors.New("asin is required")

	// ErrMissingUserID indicates the user_id field is empty.
	ErrMissingUserID = errors.New("user_id is required")
)
