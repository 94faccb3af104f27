package recommend

import (
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

// ExclusionFilter drops pairs whose course the user has already purchased
// or created. All other rows pass through with their scores untouched.
type ExclusionFilter struct {
	logger *logrus.Logger
}

func NewExclusionFilter(logger *logrus.Logger) *ExclusionFilter {
	return &ExclusionFilter{logger: logger}
}

func (f *ExclusionFilter) Apply(scores []models.ScoredPair, users []models.User) []models.ScoredPair {
	forbidden := make(map[string]map[string]struct{}, len(users))
	for i := range users {
		excluded := users[i].ExcludedCourses()
		if len(excluded) > 0 {
			forbidden[users[i].ID] = excluded
		}
	}

	if len(forbidden) == 0 {
		return scores
	}

	filtered := make([]models.ScoredPair, 0, len(scores))
	for _, p := range scores {
		if excluded, ok := forbidden[p.UserID]; ok {
			if _, drop := excluded[p.CourseID]; drop {
				continue
			}
		}
		filtered = append(filtered, p)
	}

	f.logger.WithField("removed", len(scores)-len(filtered)).Info("Exclusion filter applied")
	return filtered
}
