package models

// User is one row of the users dataset. Missing list columns are treated
// as empty sets.
type User struct {
	ID                 string   `json:"id" parquet:"id"`
	InterestTags       []int64  `json:"interest_tags" parquet:"interest_tags,list,optional"`
	Level              int32    `json:"level" parquet:"level"`
	PurchasedCourseIDs []string `json:"purchased_course_ids" parquet:"purchased_course_ids,list,optional"`
	CreatedCourseIDs   []string `json:"created_course_ids" parquet:"created_course_ids,list,optional"`
}

// ExcludedCourses returns the union of purchased and created course ids.
func (u *User) ExcludedCourses() map[string]struct{} {
	excluded := make(map[string]struct{}, len(u.PurchasedCourseIDs)+len(u.CreatedCourseIDs))
	for _, id := range u.PurchasedCourseIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range u.CreatedCourseIDs {
		excluded[id] = struct{}{}
	}
	return excluded
}
