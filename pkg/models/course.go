package models

// Course is one row of the courses dataset. A course with no tags scores
// zero against every user.
type Course struct {
	ID    string  `json:"id" parquet:"id"`
	Tags  []int64 `json:"tags" parquet:"tags,list,optional"`
	Level int32   `json:"level" parquet:"level"`
}
