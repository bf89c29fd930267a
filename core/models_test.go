package core

import (
	"testing"
	"time"
)

func TestFingerprintOf(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"B0TEST01"},
		},
		{
			name:  "empty parts",
			parts: []string{"", ""},
		},
		{
			name:  "review identity fields",
			parts: []string{"B0TEST01", "user-1", "B0PARENT", "1580000000000", "great product"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp1 := FingerprintOf(tt.parts...)
			fp2 := FingerprintOf(tt.parts...)
			if fp1 != fp2 {
				t.Errorf("FingerprintOf() not deterministic: %d vs %d", fp1, fp2)
			}
		})
	}
}

func TestFingerprintOf_Different(t *testing.T) {
	if FingerprintOf("content1") == FingerprintOf("content2") {
		t.Errorf("FingerprintOf() produced same fingerprint for different content")
	}

	// Length prefixing keeps part boundaries significant.
	if FingerprintOf("ab", "c") == FingerprintOf("a", "bc") {
		t.Errorf("FingerprintOf() ignored part boundaries")
	}
}

func TestReviewRecord_Fingerprint(t *testing.T) {
	review := ReviewRecord{
		ASIN:       "B0TEST01",
		UserID:     "user-1",
		ParentASIN: "B0PARENT",
		Timestamp:  NullInt{Value: 1580000000000, Valid: true},
		Text:       "great product",
	}

	other := review
	other.Text = "terrible product"

	if review.Fingerprint() != review.Fingerprint() {
		t.Errorf("Fingerprint() not deterministic")
	}
	if review.Fingerprint() == other.Fingerprint() {
		t.Errorf("Fingerprint() identical for different review text")
	}
}

func TestReviewRecord_Time(t *testing.T) {
	tests := []struct {
		name      string
		timestamp NullInt
		want      time.Time
		wantOK    bool
	}{
		{
			name:      "epoch millis",
			timestamp: NullInt{Value: 1580000000000, Valid: true},
			want:      time.UnixMilli(1580000000000).UTC(),
			wantOK:    true,
		},
		{
			name:      "missing timestamp",
			timestamp: NullInt{},
			wantOK:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ReviewRecord{Timestamp: tt.timestamp}
			got, ok := r.Time()
			if ok != tt.wantOK {
				t.Fatalf("Time() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}
