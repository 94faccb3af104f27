package recommend

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

// DefaultChunkSize is the user-row threshold above which the pipeline
// switches to chunked execution.
const DefaultChunkSize = 50_000

// Pipeline runs Score -> Filter -> Adjust -> Rank/Top-K per batch, then a
// popularity fallback over the whole cohort. It holds no mutable state
// across runs; inputs are read-only and the output is freshly allocated.
type Pipeline struct {
	scorer    Scorer
	filter    Filter
	adjuster  Adjuster // nil skips the adjustment stage
	chunkSize int
	logger    *logrus.Logger
}

func NewPipeline(scorer Scorer, filter Filter, adjuster Adjuster, chunkSize int, logger *logrus.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		scorer:    scorer,
		filter:    filter,
		adjuster:  adjuster,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Run produces at most topK ranked recommendations per user. Users above
// the chunk threshold are processed in contiguous blocks against the full
// catalog; chunking never changes any user's result. The fallback stage
// runs once, over the full cohort.
func (p *Pipeline) Run(users []models.User, courses []models.Course, topK int) ([]models.RankedPair, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, topK)
	}

	p.logger.WithFields(logrus.Fields{
		"users":   len(users),
		"courses": len(courses),
		"top_k":   topK,
	}).Info("Pipeline started")

	// One fit over the whole cohort and catalog: document frequencies
	// must not depend on chunk boundaries or chunking would change
	// scores.
	fitted, err := p.scorer.Fit(users, courses)
	if err != nil {
		return nil, fmt.Errorf("%w: fitting: %v", ErrScoring, err)
	}

	var result []models.RankedPair
	if len(users) > p.chunkSize {
		result, err = p.runChunked(fitted, users, courses, topK)
	} else {
		result, err = p.runSingle(fitted, users, courses, topK)
	}
	if err != nil {
		return nil, err
	}

	result = applyFallback(result, users, courses, topK, p.logger)

	p.logger.WithFields(logrus.Fields{
		"recommendations": len(result),
		"users":           countUsers(result),
	}).Info("Pipeline complete")

	return result, nil
}

func (p *Pipeline) runSingle(fitted FittedScorer, users []models.User, courses []models.Course, topK int) ([]models.RankedPair, error) {
	scores, err := fitted.Score(users)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}

	scores = p.filter.Apply(scores, users)

	if p.adjuster != nil {
		scores = p.adjuster.Adjust(scores, users, courses)
	}

	return rankTopK(scores, topK), nil
}

func (p *Pipeline) runChunked(fitted FittedScorer, users []models.User, courses []models.Course, topK int) ([]models.RankedPair, error) {
	numChunks := (len(users) + p.chunkSize - 1) / p.chunkSize
	p.logger.WithFields(logrus.Fields{
		"users":  len(users),
		"chunks": numChunks,
	}).Info("Chunked processing")

	var result []models.RankedPair
	for i := 0; i < len(users); i += p.chunkSize {
		end := i + p.chunkSize
		if end > len(users) {
			end = len(users)
		}

		// Intermediate state lives only inside this call; the chunk's
		// similarity matrix and candidate slices are collectable before
		// the next chunk starts.
		chunkResult, err := p.runSingle(fitted, users[i:end], courses, topK)
		if err != nil {
			return nil, err
		}
		result = append(result, chunkResult...)

		p.logger.WithFields(logrus.Fields{
			"chunk":  i/p.chunkSize + 1,
			"chunks": numChunks,
		}).Info("Chunk processed")
	}
	return result, nil
}

func countUsers(result []models.RankedPair) int {
	seen := make(map[string]struct{}, len(result))
	for _, r := range result {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}
