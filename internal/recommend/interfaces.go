package recommend

import "github.com/lxplabs/recflow/pkg/models"

// Scorer fits a scoring model over the full cohort and catalog. Fitting
// once keeps chunked execution bit-identical to a single batch: document
// frequencies and the vocabulary never depend on chunk boundaries.
type Scorer interface {
	Fit(users []models.User, courses []models.Course) (FittedScorer, error)
}

// FittedScorer computes the sparse (user, course, score) relation for a
// block of users against the full catalog it was fitted with. Only
// strictly positive scores are returned.
type FittedScorer interface {
	Score(users []models.User) ([]models.ScoredPair, error)
}

// Filter removes candidate pairs that must never be recommended.
type Filter interface {
	Apply(scores []models.ScoredPair, users []models.User) []models.ScoredPair
}

// Adjuster reweights scores according to a business rule. Inputs are
// read-only; implementations return a fresh slice.
type Adjuster interface {
	Adjust(scores []models.ScoredPair, users []models.User, courses []models.Course) []models.ScoredPair
}
