package stats

import (
	"sort"

	"github.com/brettboylen/thread-analyzer/models"
)

// AggregateAuthors groups comments by author and ranks the groups by comment
// count. Ties keep the order in which authors first appeared. The deleted
// sentinel counts as one author. limit <= 0 keeps every author.
func AggregateAuthors(comments []models.Comment, limit int) models.AuthorStats {
	index := make(map[string]int)
	groups := make([]models.AuthorStat, 0)

	for _, c := range comments {
		i, ok := index[c.Author]
		if !ok {
			i = len(groups)
			index[c.Author] = i
			groups = append(groups, models.AuthorStat{Author: c.Author})
		}
		groups[i].CommentCount++
		groups[i].TotalScore += c.Score
	}

	for i := range groups {
		groups[i].AvgScore = average(groups[i].TotalScore, groups[i].CommentCount)
	}

	// groups is in first-appearance order, so a stable sort gives the tie-break
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CommentCount > groups[j].CommentCount
	})

	unique := len(groups)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return models.AuthorStats{
		UniqueAuthors: unique,
		TopAuthors:    groups,
	}
}
