package recommend

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

// applyFallback fills every user that holds fewer than topK rows from a
// global popularity list, skipping courses already assigned to or
// excluded for that user. Fallback rows carry score 0.0 and ranks that
// continue after the user's scored rows. When the eligible supply runs
// out the user simply stays short.
func applyFallback(result []models.RankedPair, users []models.User, courses []models.Course, topK int, logger *logrus.Logger) []models.RankedPair {
	counts := make(map[string]int, len(users))
	assigned := make(map[string]map[string]struct{}, len(users))
	for _, r := range result {
		counts[r.UserID]++
		if assigned[r.UserID] == nil {
			assigned[r.UserID] = make(map[string]struct{})
		}
		assigned[r.UserID][r.CourseID] = struct{}{}
	}

	needsFill := false
	for i := range users {
		if counts[users[i].ID] < topK {
			needsFill = true
			break
		}
	}
	if !needsFill {
		return result
	}

	popular := popularityList(users, courses)

	filled := 0
	usersFilled := 0
	for i := range users {
		u := &users[i]
		need := topK - counts[u.ID]
		if need <= 0 {
			continue
		}

		existing := assigned[u.ID]
		excluded := u.ExcludedCourses()

		added := 0
		for _, courseID := range popular {
			if added >= need {
				break
			}
			if _, ok := existing[courseID]; ok {
				continue
			}
			if _, ok := excluded[courseID]; ok {
				continue
			}
			result = append(result, models.RankedPair{
				UserID:   u.ID,
				CourseID: courseID,
				Score:    0.0,
				Rank:     int32(counts[u.ID] + added + 1),
			})
			added++
		}
		if added > 0 {
			filled += added
			usersFilled++
		}
	}

	if filled > 0 {
		logger.WithFields(logrus.Fields{
			"rows":  filled,
			"users": usersFilled,
		}).Info("Popularity fallback applied")
	}
	return result
}

// popularityList orders the full catalog: purchased courses by descending
// purchase count across all users (first-seen order breaks ties), then
// every never-purchased course in catalog order.
func popularityList(users []models.User, courses []models.Course) []string {
	counts := make(map[string]int)
	var purchased []string
	for i := range users {
		for _, c := range users[i].PurchasedCourseIDs {
			if counts[c] == 0 {
				purchased = append(purchased, c)
			}
			counts[c]++
		}
	}

	sort.SliceStable(purchased, func(i, j int) bool {
		return counts[purchased[i]] > counts[purchased[j]]
	})

	popular := purchased
	for i := range courses {
		if counts[courses[i].ID] == 0 {
			popular = append(popular, courses[i].ID)
		}
	}
	return popular
}
