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

import (
	"encoding/json"
	"fmt"
)

// DecodeMetadataLine decodes and validates one metadata JSON line.
func DecodeMetadataLine(line []byte) (*MetadataRecord, error) {
	var record MetadataRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadataRecord, err)
	}
	if err := ValidateMetadataRecord(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DecodeReviewLine decodes and validates one review JSON line.
func DecodeReviewLine(line []byte) (*ReviewRecord, error) {
	var record ReviewRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReviewRecord, err)
	}
	if err := ValidateReviewRecord(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ValidateMetadataRecord validates a MetadataRecord according to domain rules.
//
// Validation rules:
//   - ParentASIN must not be empty (it is the record's primary identity)
//
// All other fields are optional in the source data.
func ValidateMetadataRecord(record *MetadataRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidMetadataRecord)
	}
	if record.ParentASIN == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMetadataRecord, ErrMissingParentASIN)
	}
	return nil
}

// ValidateReviewRecord validates a ReviewRecord according to domain rules.
//
// Validation rules:
//   - ASIN and UserID must not be empty
//   - ParentASIN must not be empty (foreign key to metadata)
//
// NOT validated:
//   - Rating, Timestamp, HelpfulVote (nullable in the store)
//   - Text (empty review bodies exist in the corpus and embed fine)
func ValidateReviewRecord(record *ReviewRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidReviewRecord)
	}
	if record.ASIN == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReviewRecord, ErrMissingASIN)
	}
	if record.UserID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReviewRecord, ErrMissingUserID)
	}
	if record.ParentASIN == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReviewRecord, ErrMissingParentASIN)
	}
	return nil
}
