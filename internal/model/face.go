package model

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// recordIDLen is the number of hex characters in a record ID.
// 16 bytes of a blake2b digest is plenty to avoid collisions within
// a single index while keeping IDs short enough to read in logs.
const recordIDLen = 32

// FaceRecord is one stored (identity, face vector) association.
// Records are owned by the face index once inserted: they are never
// mutated, only appended or bulk-replaced on restore.
type FaceRecord struct {
	// RecordID is an opaque identifier assigned on insert.
	RecordID string `json:"record_id"`

	// Username is the identity the face was harvested for.
	Username string `json:"username"`

	// PlatformID is the platform the profile page belongs to.
	PlatformID string `json:"platform"`

	// PageURL is the profile page the image was discovered on.
	PageURL string `json:"page_url"`

	// ImageURL is the avatar image the vector was computed from.
	ImageURL string `json:"image_url"`

	// FaceVector is the fixed-length embedding produced by the
	// external encoder. All records in one index share a dimension.
	FaceVector []float64 `json:"encoding"`

	// InsertedAt is the time the record entered the index.
	InsertedAt time.Time `json:"inserted_at"`

	// Source tags where the record came from (e.g. "hunt", "manual").
	Source string `json:"source,omitempty"`
}

// NewRecordID derives an opaque record identifier from the record's
// identifying fields and the insertion time.
func NewRecordID(username, platformID, imageURL string, insertedAt time.Time) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails with an invalid key; we pass none.
		panic(err)
	}
	fmt.Fprintf(h, "%s|%s|%s|%d", username, platformID, imageURL, insertedAt.UnixNano())
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:recordIDLen]
}

// MatchResult is one ranked hit from a face index search.
// It is derived from a FaceRecord at query time and never stored.
type MatchResult struct {
	// RecordID identifies the matching record.
	RecordID string `json:"record_id"`

	// Username is the matched identity.
	Username string `json:"username"`

	// PlatformID is the platform the match was harvested from.
	PlatformID string `json:"platform"`

	// PageURL is the profile page of the match.
	PageURL string `json:"page_url"`

	// ImageURL is the avatar image of the match.
	ImageURL string `json:"image_url"`

	// Distance is the non-negative metric distance to the query
	// vector; 0 means identical.
	Distance float64 `json:"distance"`

	// Similarity is max(0, 1-min(Distance,1)).
	Similarity float64 `json:"similarity"`

	// IsMatch reports Distance < the search threshold.
	IsMatch bool `json:"is_match"`
}

// SimilarityFromDistance converts a metric distance into the 0..1
// similarity score reported to users.
func SimilarityFromDistance(distance float64) float64 {
	if distance < 0 {
		return 1
	}
	if distance > 1 {
		return 0
	}
	return 1 - distance
}
