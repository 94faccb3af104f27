package recommend

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

// DefaultPenaltyWeights maps absolute level distance to a penalty:
// diff 0 keeps the score, diff 1 multiplies by 0.85, diff 2 by 0.50,
// diff 3 or more by 0.15.
var DefaultPenaltyWeights = []float64{0.00, 0.15, 0.50, 0.85}

// LevelWeightAdjuster multiplies each score by
// (1 - weights[min(|user.level - course.level|, len(weights)-1)]).
type LevelWeightAdjuster struct {
	weights []float64
	logger  *logrus.Logger
}

func NewLevelWeightAdjuster(weights []float64, logger *logrus.Logger) (*LevelWeightAdjuster, error) {
	if weights == nil {
		weights = DefaultPenaltyWeights
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: penalty weights must be non-empty", ErrInvalidConfig)
	}
	for i, w := range weights {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("%w: penalty weight %d is %v, want [0, 1]", ErrInvalidConfig, i, w)
		}
	}
	return &LevelWeightAdjuster{weights: weights, logger: logger}, nil
}

func (a *LevelWeightAdjuster) Adjust(scores []models.ScoredPair, users []models.User, courses []models.Course) []models.ScoredPair {
	userLevels := make(map[string]int32, len(users))
	for i := range users {
		userLevels[users[i].ID] = users[i].Level
	}
	courseLevels := make(map[string]int32, len(courses))
	for i := range courses {
		courseLevels[courses[i].ID] = courses[i].Level
	}

	maxDiff := len(a.weights) - 1
	adjusted := make([]models.ScoredPair, len(scores))
	for i, p := range scores {
		diff := int(userLevels[p.UserID] - courseLevels[p.CourseID])
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDiff {
			diff = maxDiff
		}
		p.Score *= 1.0 - a.weights[diff]
		adjusted[i] = p
	}

	a.logger.WithField("pairs", len(adjusted)).Info("Level weight adjustment applied")
	return adjusted
}
