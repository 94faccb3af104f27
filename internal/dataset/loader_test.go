package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxplabs/recflow/internal/recommend"
	"github.com/lxplabs/recflow/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadUsersCSV(t *testing.T) {
	path := writeFile(t, "users.csv",
		"id,interest_tags,level,purchased_course_ids,created_course_ids\n"+
			`u1,"[1, 2, 3]",1,"['c1', 'c2']",[]`+"\n"+
			`u2,[],0,,"['c9']"`+"\n")

	users, err := NewLoader(testLogger()).LoadUsers(path)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, models.User{
		ID:                 "u1",
		InterestTags:       []int64{1, 2, 3},
		Level:              1,
		PurchasedCourseIDs: []string{"c1", "c2"},
	}, users[0])
	assert.Equal(t, models.User{
		ID:               "u2",
		Level:            0,
		CreatedCourseIDs: []string{"c9"},
	}, users[1])
}

func TestLoader_LoadCoursesCSV(t *testing.T) {
	path := writeFile(t, "courses.csv",
		"id,tags,level\n"+
			`c1,"[1, 2]",1`+"\n"+
			"c2,[],3\n")

	courses, err := NewLoader(testLogger()).LoadCourses(path)
	require.NoError(t, err)

	require.Len(t, courses, 2)
	assert.Equal(t, models.Course{ID: "c1", Tags: []int64{1, 2}, Level: 1}, courses[0])
	assert.Equal(t, models.Course{ID: "c2", Level: 3}, courses[1])
}

func TestLoader_MissingColumns(t *testing.T) {
	path := writeFile(t, "users.csv", "id,level\nu1,1\n")

	_, err := NewLoader(testLogger()).LoadUsers(path)
	assert.ErrorIs(t, err, recommend.ErrInvalidInput)
	assert.Contains(t, err.Error(), "interest_tags")
}

func TestLoader_InvalidLevel(t *testing.T) {
	path := writeFile(t, "users.csv",
		"id,interest_tags,level,purchased_course_ids,created_course_ids\n"+
			"u1,[1],7,[],[]\n")

	_, err := NewLoader(testLogger()).LoadUsers(path)
	assert.ErrorIs(t, err, recommend.ErrInvalidInput)
}

func TestLoader_CourseLevelOutOfRange(t *testing.T) {
	path := writeFile(t, "courses.csv", "id,tags,level\nc1,[1],-1\n")

	_, err := NewLoader(testLogger()).LoadCourses(path)
	assert.ErrorIs(t, err, recommend.ErrInvalidInput)
}

func TestLoader_UnparseableFile(t *testing.T) {
	path := writeFile(t, "users.bin", "\xff\xfe\x00garbage\"unclosed")

	_, err := NewLoader(testLogger()).LoadUsers(path)
	assert.Error(t, err)
}

func TestLoader_FileNotFound(t *testing.T) {
	_, err := NewLoader(testLogger()).LoadUsers(filepath.Join(t.TempDir(), "missing.parquet"))
	assert.Error(t, err)
}

func TestParseIntList(t *testing.T) {
	tests := []struct {
		name     string
		cell     string
		expected []int64
	}{
		{name: "plain list", cell: "[1, 2, 3]", expected: []int64{1, 2, 3}},
		{name: "no spaces", cell: "[4,5]", expected: []int64{4, 5}},
		{name: "empty list", cell: "[]"},
		{name: "empty cell", cell: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntList(tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := parseIntList("[1, x]")
	assert.Error(t, err)
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommendations.parquet")
	recs := []models.RankedPair{
		{UserID: "u1", CourseID: "c2", Score: 0.75, Rank: 1},
		{UserID: "u1", CourseID: "c3", Score: 0, Rank: 2},
	}

	require.NoError(t, NewWriter(testLogger()).WriteRecommendations(path, recs))

	got, err := readParquet[models.RankedPair](path)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}
