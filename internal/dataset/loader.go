package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/recommend"
	"github.com/lxplabs/recflow/pkg/models"
)

// ErrParse marks a dataset file that could not be read as parquet or CSV.
var ErrParse = errors.New("parsing error")

var (
	usersRequiredColumns   = []string{"id", "interest_tags", "level", "purchased_course_ids", "created_course_ids"}
	coursesRequiredColumns = []string{"id", "tags", "level"}
)

// Loader reads user and course datasets. Parquet is the primary format;
// CSV is the fallback, with list columns serialized as bracketed
// literals ("[1, 2, 3]", "['c1', 'c2']").
type Loader struct {
	logger *logrus.Logger
}

func NewLoader(logger *logrus.Logger) *Loader {
	return &Loader{logger: logger}
}

func (l *Loader) LoadUsers(path string) ([]models.User, error) {
	users, err := readParquet[models.User](path)
	if err != nil {
		l.logger.WithError(err).WithField("path", path).Warn("Parquet load failed, trying CSV fallback")
		users, err = l.loadUsersCSV(path)
		if err != nil {
			return nil, err
		}
	}

	for i := range users {
		if users[i].ID == "" {
			return nil, fmt.Errorf("%w: users row %d has no id", recommend.ErrInvalidInput, i)
		}
		if users[i].Level < 0 || users[i].Level > 3 {
			return nil, fmt.Errorf("%w: user %s has level %d, want 0-3", recommend.ErrInvalidInput, users[i].ID, users[i].Level)
		}
	}

	l.logger.WithFields(logrus.Fields{"path": path, "rows": len(users)}).Info("Users dataset loaded")
	return users, nil
}

func (l *Loader) LoadCourses(path string) ([]models.Course, error) {
	courses, err := readParquet[models.Course](path)
	if err != nil {
		l.logger.WithError(err).WithField("path", path).Warn("Parquet load failed, trying CSV fallback")
		courses, err = l.loadCoursesCSV(path)
		if err != nil {
			return nil, err
		}
	}

	for i := range courses {
		if courses[i].ID == "" {
			return nil, fmt.Errorf("%w: courses row %d has no id", recommend.ErrInvalidInput, i)
		}
		if courses[i].Level < 0 || courses[i].Level > 3 {
			return nil, fmt.Errorf("%w: course %s has level %d, want 0-3", recommend.ErrInvalidInput, courses[i].ID, courses[i].Level)
		}
	}

	l.logger.WithFields(logrus.Fields{"path": path, "rows": len(courses)}).Info("Courses dataset loaded")
	return courses, nil
}

func readParquet[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

func (l *Loader) loadUsersCSV(path string) ([]models.User, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, usersRequiredColumns, "users")
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(rows))
	for i, row := range rows {
		tags, err := parseIntList(row[cols["interest_tags"]])
		if err != nil {
			return nil, fmt.Errorf("%w: users row %d interest_tags: %v", ErrParse, i, err)
		}
		level, err := strconv.ParseInt(strings.TrimSpace(row[cols["level"]]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: users row %d level: %v", ErrParse, i, err)
		}
		users = append(users, models.User{
			ID:                 row[cols["id"]],
			InterestTags:       tags,
			Level:              int32(level),
			PurchasedCourseIDs: parseStringList(row[cols["purchased_course_ids"]]),
			CreatedCourseIDs:   parseStringList(row[cols["created_course_ids"]]),
		})
	}
	return users, nil
}

func (l *Loader) loadCoursesCSV(path string) ([]models.Course, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(header, coursesRequiredColumns, "courses")
	if err != nil {
		return nil, err
	}

	courses := make([]models.Course, 0, len(rows))
	for i, row := range rows {
		tags, err := parseIntList(row[cols["tags"]])
		if err != nil {
			return nil, fmt.Errorf("%w: courses row %d tags: %v", ErrParse, i, err)
		}
		level, err := strconv.ParseInt(strings.TrimSpace(row[cols["level"]]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: courses row %d level: %v", ErrParse, i, err)
		}
		courses = append(courses, models.Course{
			ID:    row[cols["id"]],
			Tags:  tags,
			Level: int32(level),
		})
	}
	return courses, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file %s", ErrParse, path)
	}
	return records[0], records[1:], nil
}

func columnIndex(header []string, required []string, table string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s file missing columns: %s", recommend.ErrInvalidInput, table, strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseIntList reads a bracketed integer list: "[1, 2, 3]". Empty or
// null cells become empty sets.
func parseIntList(cell string) ([]int64, error) {
	items := splitListCell(cell)
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		v, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseStringList reads a bracketed string list: "['c1', 'c2']" (single
// or double quotes).
func parseStringList(cell string) []string {
	items := splitListCell(cell)
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.Trim(item, `'"`))
	}
	return out
}

func splitListCell(cell string) []string {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimPrefix(cell, "[")
	cell = strings.TrimSuffix(cell, "]")
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
