package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxplabs/recflow/pkg/models"
)

func TestApplyFallback_ColdUserFilledInCatalogOrder(t *testing.T) {
	// No purchases anywhere: the popularity list degenerates to course
	// insertion order.
	users := []models.User{{ID: "u3", InterestTags: []int64{999}}}
	courses := []models.Course{
		{ID: "c1", Tags: []int64{1, 2}},
		{ID: "c2", Tags: []int64{2, 3}},
		{ID: "c3", Tags: []int64{4, 5}},
	}

	result := applyFallback(nil, users, courses, 3, testLogger())

	require.Len(t, result, 3)
	assert.Equal(t, models.RankedPair{UserID: "u3", CourseID: "c1", Score: 0, Rank: 1}, result[0])
	assert.Equal(t, models.RankedPair{UserID: "u3", CourseID: "c2", Score: 0, Rank: 2}, result[1])
	assert.Equal(t, models.RankedPair{UserID: "u3", CourseID: "c3", Score: 0, Rank: 3}, result[2])
}

func TestApplyFallback_PopularityByPurchaseFrequency(t *testing.T) {
	users := []models.User{
		{ID: "u1", PurchasedCourseIDs: []string{"c2"}},
		{ID: "u2", PurchasedCourseIDs: []string{"c2", "c3"}},
		{ID: "u3"},
	}
	courses := []models.Course{
		{ID: "c1"}, {ID: "c2"}, {ID: "c3"},
	}

	result := applyFallback(nil, users, courses, 3, testLogger())

	var u3 []models.RankedPair
	for _, r := range result {
		if r.UserID == "u3" {
			u3 = append(u3, r)
		}
	}
	require.Len(t, u3, 3)
	// c2 purchased twice, c3 once, c1 never (catalog-order remainder).
	assert.Equal(t, "c2", u3[0].CourseID)
	assert.Equal(t, "c3", u3[1].CourseID)
	assert.Equal(t, "c1", u3[2].CourseID)
}

func TestApplyFallback_SkipsAssignedAndExcluded(t *testing.T) {
	existing := []models.RankedPair{
		{UserID: "u1", CourseID: "c1", Score: 0.8, Rank: 1},
	}
	users := []models.User{
		{ID: "u1", PurchasedCourseIDs: []string{"c2"}},
	}
	courses := []models.Course{
		{ID: "c1"}, {ID: "c2"}, {ID: "c3"}, {ID: "c4"},
	}

	result := applyFallback(existing, users, courses, 3, testLogger())

	require.Len(t, result, 3)
	assert.Equal(t, "c1", result[0].CourseID) // untouched scored row
	// c2 is purchased (excluded from fallback even though it tops the
	// popularity list); fill continues with c3, c4.
	assert.Equal(t, models.RankedPair{UserID: "u1", CourseID: "c3", Score: 0, Rank: 2}, result[1])
	assert.Equal(t, models.RankedPair{UserID: "u1", CourseID: "c4", Score: 0, Rank: 3}, result[2])
}

func TestApplyFallback_SupplyExhaustion(t *testing.T) {
	// Everything but two catalog courses is excluded; the user ends short
	// of K and that is not an error.
	excluded := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	users := []models.User{
		{ID: "u1", PurchasedCourseIDs: excluded[:4], CreatedCourseIDs: excluded[4:]},
	}
	var courses []models.Course
	for _, id := range append(excluded, "c9", "c10") {
		courses = append(courses, models.Course{ID: id})
	}

	result := applyFallback(nil, users, courses, 5, testLogger())

	require.Len(t, result, 2)
	assert.Equal(t, "c9", result[0].CourseID)
	assert.Equal(t, "c10", result[1].CourseID)
	assert.Equal(t, int32(1), result[0].Rank)
	assert.Equal(t, int32(2), result[1].Rank)
}

func TestApplyFallback_FullUsersUntouched(t *testing.T) {
	existing := []models.RankedPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9, Rank: 1},
		{UserID: "u1", CourseID: "c2", Score: 0.8, Rank: 2},
	}
	users := []models.User{{ID: "u1"}}
	courses := []models.Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

	result := applyFallback(existing, users, courses, 2, testLogger())
	assert.Equal(t, existing, result)
}

func TestApplyFallback_RanksContinueAfterScoredRows(t *testing.T) {
	existing := []models.RankedPair{
		{UserID: "u1", CourseID: "c1", Score: 0.9, Rank: 1},
	}
	users := []models.User{{ID: "u1"}}
	courses := []models.Course{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}

	result := applyFallback(existing, users, courses, 3, testLogger())

	require.Len(t, result, 3)
	assert.Equal(t, int32(2), result[1].Rank)
	assert.Equal(t, int32(3), result[2].Rank)
	assert.Zero(t, result[1].Score)
	assert.Zero(t, result[2].Score)
}
