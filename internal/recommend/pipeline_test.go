package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxplabs/recflow/pkg/models"
)

func newTestPipeline(t *testing.T, chunkSize int) *Pipeline {
	t.Helper()
	logger := testLogger()
	adjuster, err := NewLevelWeightAdjuster(nil, logger)
	require.NoError(t, err)
	return NewPipeline(NewTFIDFScorer(logger), NewExclusionFilter(logger), adjuster, chunkSize, logger)
}

func resultsFor(result []models.RankedPair, userID string) []models.RankedPair {
	var rows []models.RankedPair
	for _, r := range result {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	return rows
}

// assertInvariants checks the per-user guarantees: at most topK rows,
// dense ranks from 1, no duplicates, no excluded courses, non-increasing
// scored rows with fallback rows strictly after them.
func assertInvariants(t *testing.T, result []models.RankedPair, users []models.User, topK int) {
	t.Helper()
	for i := range users {
		u := &users[i]
		rows := resultsFor(result, u.ID)
		assert.LessOrEqual(t, len(rows), topK)

		excluded := u.ExcludedCourses()
		seen := make(map[string]struct{})
		lastScore := -1.0
		inFallback := false
		for i, r := range rows {
			assert.Equal(t, int32(i+1), r.Rank, "ranks must be dense from 1 for %s", u.ID)

			_, dup := seen[r.CourseID]
			assert.False(t, dup, "duplicate course %s for %s", r.CourseID, u.ID)
			seen[r.CourseID] = struct{}{}

			_, forbidden := excluded[r.CourseID]
			assert.False(t, forbidden, "excluded course %s recommended to %s", r.CourseID, u.ID)

			if r.Score == 0 {
				inFallback = true
			} else {
				assert.False(t, inFallback, "scored row after fallback row for %s", u.ID)
				if lastScore >= 0 {
					assert.LessOrEqual(t, r.Score, lastScore+1e-12)
				}
				lastScore = r.Score
			}
		}
	}
}

func TestPipeline_BasicRanking(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	users := []models.User{
		{ID: "u1", InterestTags: []int64{1, 2, 3}, Level: 1, PurchasedCourseIDs: []string{"c1"}},
	}
	courses := []models.Course{
		{ID: "c1", Tags: []int64{1, 2}, Level: 1},
		{ID: "c2", Tags: []int64{2, 3}, Level: 2},
		{ID: "c3", Tags: []int64{4, 5}, Level: 0},
		{ID: "c4", Tags: []int64{1, 3, 5}, Level: 1},
	}

	result, err := pipeline.Run(users, courses, 3)
	require.NoError(t, err)
	assertInvariants(t, result, users, 3)

	rows := resultsFor(result, "u1")
	require.Len(t, rows, 3)

	// c1 is excluded, c3 scores zero; c2 and c4 fill ranks 1-2 by
	// adjusted score, the third slot is popularity fallback (c3).
	assert.Greater(t, rows[0].Score, rows[1].Score)
	assert.Greater(t, rows[1].Score, 0.0)
	assert.ElementsMatch(t,
		[]string{"c2", "c4"},
		[]string{rows[0].CourseID, rows[1].CourseID},
	)
	assert.Equal(t, "c3", rows[2].CourseID)
	assert.Zero(t, rows[2].Score)
}

func TestPipeline_ExclusionDominates(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	users := []models.User{
		{ID: "u2", InterestTags: []int64{3, 4, 5}, Level: 2, CreatedCourseIDs: []string{"c3"}},
	}
	courses := []models.Course{
		{ID: "c1", Tags: []int64{1, 2}, Level: 1},
		{ID: "c2", Tags: []int64{2, 3}, Level: 2},
		{ID: "c3", Tags: []int64{4, 5}, Level: 0},
		{ID: "c4", Tags: []int64{1, 3, 5}, Level: 1},
	}

	result, err := pipeline.Run(users, courses, 2)
	require.NoError(t, err)
	assertInvariants(t, result, users, 2)

	rows := resultsFor(result, "u2")
	require.Len(t, rows, 2)

	// c3 is a perfect tag match but excluded by created_course_ids; both
	// remaining rows are scored (no fallback needed).
	assert.ElementsMatch(t,
		[]string{"c2", "c4"},
		[]string{rows[0].CourseID, rows[1].CourseID},
	)
	assert.Greater(t, rows[0].Score, 0.0)
	assert.Greater(t, rows[1].Score, 0.0)
}

func TestPipeline_ChunkingTransparency(t *testing.T) {
	var users []models.User
	for i := 0; i < 25; i++ {
		users = append(users, models.User{
			ID:           fmt.Sprintf("u%d", i),
			InterestTags: []int64{int64(i % 7), int64(i % 5)},
			Level:        int32(i % 4),
			PurchasedCourseIDs: []string{
				fmt.Sprintf("c%d", i%10),
			},
		})
	}
	var courses []models.Course
	for i := 0; i < 10; i++ {
		courses = append(courses, models.Course{
			ID:    fmt.Sprintf("c%d", i),
			Tags:  []int64{int64(i % 7), int64(i % 3)},
			Level: int32(i % 4),
		})
	}

	single, err := newTestPipeline(t, len(users)+1).Run(users, courses, 5)
	require.NoError(t, err)
	chunked, err := newTestPipeline(t, 4).Run(users, courses, 5)
	require.NoError(t, err)

	for i := range users {
		uid := users[i].ID
		assert.Equal(t, resultsFor(single, uid), resultsFor(chunked, uid),
			"chunking changed the result for %s", uid)
	}
	assertInvariants(t, chunked, users, 5)
}

func TestPipeline_Deterministic(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	users := []models.User{
		{ID: "u1", InterestTags: []int64{1, 2}},
		{ID: "u2", InterestTags: []int64{2, 3}},
	}
	courses := []models.Course{
		{ID: "c1", Tags: []int64{1, 2}},
		{ID: "c2", Tags: []int64{2, 3}},
		{ID: "c3", Tags: []int64{1, 3}},
	}

	first, err := pipeline.Run(users, courses, 2)
	require.NoError(t, err)
	second, err := pipeline.Run(users, courses, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipeline_QuotaFilledWhenSupplyPermits(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	users := []models.User{
		{ID: "u1", InterestTags: []int64{42}},
		{ID: "u2"},
	}
	var courses []models.Course
	for i := 0; i < 6; i++ {
		courses = append(courses, models.Course{ID: fmt.Sprintf("c%d", i), Tags: []int64{int64(i)}})
	}

	result, err := pipeline.Run(users, courses, 4)
	require.NoError(t, err)
	assertInvariants(t, result, users, 4)

	assert.Len(t, resultsFor(result, "u1"), 4)
	assert.Len(t, resultsFor(result, "u2"), 4)
}

func TestPipeline_InvalidTopK(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	for _, k := range []int{0, -1} {
		_, err := pipeline.Run(nil, nil, k)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestPipeline_EmptyInputsProduceEmptyResult(t *testing.T) {
	pipeline := newTestPipeline(t, 0)

	result, err := pipeline.Run(nil, []models.Course{{ID: "c1", Tags: []int64{1}}}, 3)
	require.NoError(t, err)
	assert.Empty(t, result)

	result, err = pipeline.Run([]models.User{{ID: "u1", InterestTags: []int64{1}}}, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestPipeline_AdjusterOptional(t *testing.T) {
	logger := testLogger()
	pipeline := NewPipeline(NewTFIDFScorer(logger), NewExclusionFilter(logger), nil, 0, logger)

	users := []models.User{{ID: "u1", InterestTags: []int64{1}, Level: 0}}
	courses := []models.Course{{ID: "c1", Tags: []int64{1}, Level: 3}}

	result, err := pipeline.Run(users, courses, 1)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// Without the adjuster the level gap costs nothing.
	assert.InDelta(t, 1.0, result[0].Score, 1e-9)
}
