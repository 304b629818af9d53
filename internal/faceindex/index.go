package faceindex

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/osintlab/facetrace/internal/model"
)

// Index is an append-only store of face embeddings with linear
// nearest-match search. Linear scan is the right call at this scale:
// an index holds at most a few thousand records, where brute force
// beats any ANN structure on both simplicity and actual latency.
//
// Index is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	// records in insertion order. Never mutated in place.
	records []model.FaceRecord

	// dimension is the vector length established by the first insert.
	// 0 until the first record arrives.
	dimension int

	// now is the clock, injectable for tests.
	now func() time.Time
}

// Option configures an Index.
type Option func(*Index)

// WithClock sets the time source used for insertion timestamps.
func WithClock(now func() time.Time) Option {
	return func(idx *Index) {
		idx.now = now
	}
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	idx := &Index{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(idx)
	}

	return idx
}

// Insert adds a record to the index, assigning its RecordID and
// InsertedAt. The first insert fixes the index dimension; later
// inserts must match it.
func (idx *Index) Insert(record model.FaceRecord) (model.FaceRecord, error) {
	if len(record.FaceVector) == 0 {
		return model.FaceRecord{}, ErrEmptyVector
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension != 0 && len(record.FaceVector) != idx.dimension {
		return model.FaceRecord{}, fmt.Errorf("%w: got %d, index has %d",
			ErrDimensionMismatch, len(record.FaceVector), idx.dimension)
	}

	record.InsertedAt = idx.now()
	record.RecordID = model.NewRecordID(record.Username, record.PlatformID, record.ImageURL, record.InsertedAt)

	if idx.dimension == 0 {
		idx.dimension = len(record.FaceVector)
	}
	idx.records = append(idx.records, record)

	return record, nil
}

// Search ranks all records by distance to the query vector and returns
// the topK closest, highest similarity first. Ties keep insertion
// order. Searching an empty index returns no results and no error.
func (idx *Index) Search(query []float64, threshold float64, topK int) ([]model.MatchResult, error) {
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.records) == 0 {
		return nil, nil
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d, index has %d",
			ErrDimensionMismatch, len(query), idx.dimension)
	}

	matches := make([]model.MatchResult, 0, len(idx.records))
	for _, rec := range idx.records {
		d := euclidean(query, rec.FaceVector)
		matches = append(matches, model.MatchResult{
			RecordID:   rec.RecordID,
			Username:   rec.Username,
			PlatformID: rec.PlatformID,
			PageURL:    rec.PageURL,
			ImageURL:   rec.ImageURL,
			Distance:   d,
			Similarity: model.SimilarityFromDistance(d),
			IsMatch:    d < threshold,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Count returns the number of stored records.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Records returns a copy of all records in insertion order.
func (idx *Index) Records() []model.FaceRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]model.FaceRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Stats summarizes the index contents for the stats command.
type Stats struct {
	// Total is the number of stored records.
	Total int

	// Dimension is the vector length, 0 for an empty index.
	Dimension int

	// Usernames is the number of distinct identities.
	Usernames int

	// ByPlatform counts records per platform id.
	ByPlatform map[string]int
}

// Stats computes summary statistics over the index.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		Total:      len(idx.records),
		Dimension:  idx.dimension,
		ByPlatform: make(map[string]int),
	}

	users := make(map[string]bool)
	for _, rec := range idx.records {
		users[rec.Username] = true
		s.ByPlatform[rec.PlatformID]++
	}
	s.Usernames = len(users)

	return s
}

// indexFile is the on-disk JSON layout.
type indexFile struct {
	Faces    []model.FaceRecord `json:"faces"`
	Metadata indexMetadata      `json:"metadata"`
}

// indexMetadata describes the snapshot, not the live index.
type indexMetadata struct {
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Persist writes the index to path as JSON. The write goes through a
// temp file and rename so a crash mid-write cannot corrupt an
// existing index.
func (idx *Index) Persist(path string) error {
	idx.mu.RLock()
	file := indexFile{
		Faces: idx.records,
		Metadata: indexMetadata{
			Total:       len(idx.records),
			GeneratedAt: idx.now(),
		},
	}
	data, err := json.MarshalIndent(file, "", "  ")
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal face index: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".face_index-*.json")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck,gosec // Best-effort cleanup
		os.Remove(tmpName)    //nolint:errcheck,gosec // Best-effort cleanup
		return fmt.Errorf("write face index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // Best-effort cleanup
		return fmt.Errorf("close face index: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck,gosec // Best-effort cleanup
		return fmt.Errorf("replace face index: %w", err)
	}

	return nil
}

// Restore replaces the index contents from a JSON file written by
// Persist. The existing contents are untouched unless the whole file
// parses and validates, so a corrupt file never empties a live index.
func (idx *Index) Restore(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided index path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrIndexNotFound
		}
		return fmt.Errorf("read face index: %w", err)
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse face index: %w", err)
	}

	dimension := 0
	for i, rec := range file.Faces {
		if len(rec.FaceVector) == 0 {
			return fmt.Errorf("record %d: %w", i, ErrEmptyVector)
		}
		if dimension == 0 {
			dimension = len(rec.FaceVector)
		} else if len(rec.FaceVector) != dimension {
			return fmt.Errorf("record %d: %w", i, ErrDimensionMismatch)
		}
	}

	idx.mu.Lock()
	idx.records = file.Faces
	idx.dimension = dimension
	idx.mu.Unlock()

	return nil
}

// euclidean computes the L2 distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
