package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lxplabs/recflow/pkg/models"
)

func TestExclusionFilter_DropsPurchasedAndCreated(t *testing.T) {
	filter := NewExclusionFilter(testLogger())

	scores := []models.ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9},
		{UserID: "u1", CourseID: "c2", Score: 0.8},
		{UserID: "u1", CourseID: "c3", Score: 0.7},
		{UserID: "u2", CourseID: "c1", Score: 0.6},
	}
	users := []models.User{
		{ID: "u1", PurchasedCourseIDs: []string{"c1"}, CreatedCourseIDs: []string{"c3"}},
		{ID: "u2"},
	}

	filtered := filter.Apply(scores, users)

	assert.Equal(t, []models.ScoredPair{
		{UserID: "u1", CourseID: "c2", Score: 0.8},
		{UserID: "u2", CourseID: "c1", Score: 0.6},
	}, filtered)
}

func TestExclusionFilter_NoExclusionsPassesThrough(t *testing.T) {
	filter := NewExclusionFilter(testLogger())

	scores := []models.ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.5},
	}
	users := []models.User{{ID: "u1"}}

	filtered := filter.Apply(scores, users)
	assert.Equal(t, scores, filtered)
}

func TestExclusionFilter_ExclusionOnlyAppliesToOwnUser(t *testing.T) {
	filter := NewExclusionFilter(testLogger())

	scores := []models.ScoredPair{
		{UserID: "u1", CourseID: "c1", Score: 0.5},
		{UserID: "u2", CourseID: "c1", Score: 0.4},
	}
	users := []models.User{
		{ID: "u1", PurchasedCourseIDs: []string{"c1"}},
		{ID: "u2"},
	}

	filtered := filter.Apply(scores, users)

	assert.Len(t, filtered, 1)
	assert.Equal(t, "u2", filtered[0].UserID)
}
