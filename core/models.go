package core

import (
	"encoding/binary"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a deterministic 64-bit content hash of a record.
// Identical content always produces the same fingerprint, which makes
// review inserts idempotent across re-runs of a shard.
type Fingerprint uint64

// FingerprintOf computes a fingerprint over the given parts using BLAKE2b.
// Parts are length-prefixed so ("ab","c") and ("a","bc") hash differently.
func FingerprintOf(parts ...string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	var lenBuf [8]byte
	for _, part := range parts {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// MetadataRecord is one product metadata line from the source corpus.
// ParentASIN is the primary identity; all other fields are optional.
type MetadataRecord struct {
	ParentASIN     string          `json:"parent_asin"`
	MainCategory   string          `json:"main_category"`
	Title          string          `json:"title"`
	AverageRating  NullFloat       `json:"average_rating"`
	RatingNumber   NullInt         `json:"rating_number"`
	Features       json.RawMessage `json:"features,omitempty"`
	Description    json.RawMessage `json:"description,omitempty"`
	Price          NullFloat       `json:"price"`
	Images         json.RawMessage `json:"images,omitempty"`
	Videos         json.RawMessage `json:"videos,omitempty"`
	Store          string          `json:"store"`
	Categories     json.RawMessage `json:"categories,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	BoughtTogether json.RawMessage `json:"bought_together,omitempty"`
}

// ReviewRecord is one user review line from the source corpus.
// The source field for the review body is "text"; it is stored in the
// review_text column. Reviews have no natural unique key, so Fingerprint
// derives one from content.
type ReviewRecord struct {
	ASIN             string          `json:"asin"`
	UserID           string          `json:"user_id"`
	Rating           NullFloat       `json:"rating"`
	Title            string          `json:"title"`
	Text             string          `json:"text"`
	Images           json.RawMessage `json:"images,omitempty"`
	ParentASIN       string          `json:"parent_asin"`
	Timestamp        NullInt         `json:"timestamp"`
	HelpfulVote      NullInt         `json:"helpful_vote"`
	VerifiedPurchase bool            `json:"verified_purchase"`
}

// Time converts the source timestamp (epoch milliseconds) to UTC.
// Returns false if the record carries no usable timestamp.
func (r *ReviewRecord) Time() (time.Time, bool) {
	if !r.Timestamp.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(r.Timestamp.Value).UTC(), true
}

// Fingerprint derives the review's content fingerprint from the fields
// that identify it in the source data.
func (r *ReviewRecord) Fingerprint() Fingerprint {
	ts := ""
	if r.Timestamp.Valid {
		ts = strconv.FormatInt(r.Timestamp.Value, 10)
	}
	return FingerprintOf(r.ASIN, r.UserID, r.ParentASIN, ts, r.Text)
}
