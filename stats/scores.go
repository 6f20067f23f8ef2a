package stats

import (
	"math"

	"github.com/brettboylen/thread-analyzer/models"
)

// AggregateScores computes total, average, max and min score.
// An empty collection yields all zeros.
func AggregateScores(comments []models.Comment) models.CommentStats {
	var stats models.CommentStats
	if len(comments) == 0 {
		return stats
	}

	stats.MaxScore = comments[0].Score
	stats.MinScore = comments[0].Score
	for _, c := range comments {
		stats.TotalScore += c.Score
		if c.Score > stats.MaxScore {
			stats.MaxScore = c.Score
		}
		if c.Score < stats.MinScore {
			stats.MinScore = c.Score
		}
	}
	stats.AvgScore = average(stats.TotalScore, len(comments))

	return stats
}

// average returns total/count rounded to 2 decimals, or 0 when count is 0
func average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(float64(total) / float64(count))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
