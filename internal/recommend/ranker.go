package recommend

import (
	"sort"

	"github.com/lxplabs/recflow/pkg/models"
)

// rankTopK sorts each user's candidates by score descending, keeps the
// first topK and assigns dense ranks starting at 1.
//
// Ties keep their prior insertion order (user input order crossed with
// course input order), which is the reproducible tie-break this engine
// commits to. Users appear in the output in input order.
func rankTopK(scores []models.ScoredPair, topK int) []models.RankedPair {
	userOrder := make([]string, 0)
	groups := make(map[string][]models.ScoredPair)
	for _, p := range scores {
		if _, ok := groups[p.UserID]; !ok {
			userOrder = append(userOrder, p.UserID)
		}
		groups[p.UserID] = append(groups[p.UserID], p)
	}

	var ranked []models.RankedPair
	for _, uid := range userOrder {
		group := groups[uid]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})
		if len(group) > topK {
			group = group[:topK]
		}
		for i, p := range group {
			ranked = append(ranked, models.RankedPair{
				UserID:   p.UserID,
				CourseID: p.CourseID,
				Score:    p.Score,
				Rank:     int32(i + 1),
			})
		}
	}
	return ranked
}
