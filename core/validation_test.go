package core

import (
	"errors"
	"testing"
)

func TestDecodeMetadataLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{
			name: "valid record",
			line: `{"parent_asin":"B0PARENT","title":"Widget","average_rating":4.5,"rating_number":120,"price":"23.99","categories":["Tools"]}`,
		},
		{
			name:    "missing parent_asin",
			line:    `{"title":"Widget"}`,
			wantErr: ErrMissingParentASIN,
		},
		{
			name:    "malformed json",
			line:    `{"parent_asin": "B0PARENT"`,
			wantErr: ErrInvalidMetadataRecord,
		},
		{
			name: "placeholder numerics decode as null",
			line: `{"parent_asin":"B0PARENT","average_rating":"—","price":"N/A","rating_number":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := DecodeMetadataLine([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeMetadataLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMetadataLine() error = %v", err)
			}
			if record.ParentASIN != "B0PARENT" {
				t.Errorf("ParentASIN = %q", record.ParentASIN)
			}
		})
	}
}

func TestDecodeMetadataLine_Nulls(t *testing.T) {
	record, err := DecodeMetadataLine([]byte(`{"parent_asin":"B0PARENT","average_rating":"—","price":""}`))
	if err != nil {
		t.Fatalf("DecodeMetadataLine() error = %v", err)
	}
	if record.AverageRating.Valid {
		t.Errorf("AverageRating should be null for placeholder")
	}
	if record.Price.Valid {
		t.Errorf("Price should be null for empty string")
	}
}

func TestDecodeReviewLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{
			name: "valid review",
			line: `{"asin":"B0TEST01","user_id":"user-1","parent_asin":"B0PARENT","rating":5.0,"text":"Works great","timestamp":1580000000000,"helpful_vote":3,"verified_purchase":true}`,
		},
		{
			name:    "missing asin",
			line:    `{"user_id":"user-1","parent_asin":"B0PARENT"}`,
			wantErr: ErrMissingASIN,
		},
		{
			name:    "missing user_id",
			line:    `{"asin":"B0TEST01","parent_asin":"B0PARENT"}`,
			wantErr: ErrMissingUserID,
		},
		{
			name:    "missing parent_asin",
			line:    `{"asin":"B0TEST01","user_id":"user-1"}`,
			wantErr: ErrMissingParentASIN,
		},
		{
			name:    "malformed json",
			line:    `not json at all`,
			wantErr: ErrInvalidReviewRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReviewLine([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeReviewLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeReviewLine() error = %v", err)
			}
		})
	}
}

func TestDecodeReviewLine_Fields(t *testing.T) {
	line := `{"asin":"B0TEST01","user_id":"user-1","parent_asin":"B0PARENT","rating":"4.0","text":"ok","timestamp":1580000000000,"images":[{"small_image_url":"http://x"}]}`
	record, err := DecodeReviewLine([]byte(line))
	if err != nil {
		t.Fatalf("DecodeReviewLine() error = %v", err)
	}
	if !record.Rating.Valid || record.Rating.Value != 4.0 {
		t.Errorf("Rating = %+v, want 4.0", record.Rating)
	}
	if ts, ok := record.Time(); !ok || ts.Year() != 2020 {
		t.Errorf("Time() = %v %v, want a 2020 timestamp", ts, ok)
	}
	if len(record.Images) == 0 {
		t.Errorf("Images raw JSON should be preserved")
	}
}
