package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/faceindex"
	"github.com/osintlab/facetrace/internal/model"
)

// Pipeline connects probe results to the face index. It downloads
// avatar candidates for profiles that exist, encodes them, and inserts
// the embeddings.
type Pipeline struct {
	// fetcher retrieves avatar bytes.
	fetcher *Fetcher

	// encoder produces face embeddings.
	encoder Encoder

	// index receives the resulting records.
	index *faceindex.Index

	// imagesPerProfile is how many candidates per profile are
	// attempted. Candidates beyond this are ignored even if earlier
	// ones fail: avatar lists are ordered most-likely first, and deep
	// candidates are overwhelmingly page furniture, not faces.
	imagesPerProfile int

	// sniffExif enables EXIF lead extraction on fetched images.
	sniffExif bool

	// logger receives per-image progress output.
	logger *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithImagesPerProfile sets how many candidates per profile to attempt.
func WithImagesPerProfile(n int) PipelineOption {
	return func(p *Pipeline) {
		p.imagesPerProfile = n
	}
}

// WithExifSniffing toggles EXIF lead extraction.
func WithExifSniffing(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.sniffExif = enabled
	}
}

// WithPipelineLogger sets the logger used for indexing progress.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline writing into the given index.
func NewPipeline(fetcher *Fetcher, encoder Encoder, index *faceindex.Index, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetcher:          fetcher,
		encoder:          encoder,
		index:            index,
		imagesPerProfile: config.DefaultImagesPerProfile,
		sniffExif:        true,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Summary reports what an indexing run accomplished.
type Summary struct {
	// ProfilesSeen is the number of existing profiles processed.
	ProfilesSeen int

	// ImagesAttempted is the number of candidate downloads started.
	ImagesAttempted int

	// Indexed is the number of face records inserted.
	Indexed int

	// Skipped counts skipped candidates by failure kind.
	Skipped map[model.ProbeErrorKind]int

	// Leads holds EXIF leads found in fetched images.
	Leads []ExifLead
}

// Index processes crawl results and inserts one face record per
// successfully encoded avatar. Failures are counted, logged, and
// swallowed: indexing must make whatever progress the inputs allow.
func (p *Pipeline) Index(ctx context.Context, results map[string][]*model.ProbeResult) *Summary {
	summary := &Summary{
		Skipped: make(map[model.ProbeErrorKind]int),
	}

	for _, username := range sortedKeys(results) {
		for _, result := range results[username] {
			if ctx.Err() != nil {
				return summary
			}
			if !result.Exists || result.Failed() {
				continue
			}
			summary.ProfilesSeen++
			p.indexProfile(ctx, result, summary)
		}
	}

	return summary
}

// indexProfile attempts the leading avatar candidates of one profile.
func (p *Pipeline) indexProfile(ctx context.Context, result *model.ProbeResult, summary *Summary) {
	candidates := result.CandidateImageURLs
	if len(candidates) > p.imagesPerProfile {
		candidates = candidates[:p.imagesPerProfile]
	}

	for _, imageURL := range candidates {
		summary.ImagesAttempted++

		data, perr := p.fetcher.Fetch(ctx, imageURL)
		if perr != nil {
			summary.Skipped[perr.Kind]++
			p.logger.DebugContext(ctx, "avatar fetch skipped",
				slog.String("username", result.Username),
				slog.String("image", imageURL),
				slog.String("kind", string(perr.Kind)))
			continue
		}

		if p.sniffExif {
			summary.Leads = append(summary.Leads, SniffExif(data, imageURL, result.Username)...)
		}

		vector, err := p.encoder.Encode(ctx, data)
		if err != nil {
			kind := model.ProbeErrorOther
			if errors.Is(err, ErrNoFace) {
				kind = model.ProbeErrorNoFace
			}
			summary.Skipped[kind]++
			p.logger.DebugContext(ctx, "avatar encode skipped",
				slog.String("username", result.Username),
				slog.String("image", imageURL),
				slog.String("kind", string(kind)))
			continue
		}

		_, err = p.index.Insert(model.FaceRecord{
			Username:   result.Username,
			PlatformID: result.PlatformID,
			PageURL:    result.FinalURL,
			ImageURL:   imageURL,
			FaceVector: vector,
			Source:     "hunt",
		})
		if err != nil {
			summary.Skipped[model.ProbeErrorOther]++
			p.logger.WarnContext(ctx, "face index insert failed",
				slog.String("username", result.Username),
				slog.String("error", err.Error()))
			continue
		}

		summary.Indexed++
	}
}

// sortedKeys returns map keys in stable order so indexing runs are
// deterministic for identical inputs.
func sortedKeys(m map[string][]*model.ProbeResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
