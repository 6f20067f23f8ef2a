package stats

import (
	"time"

	"github.com/brettboylen/thread-analyzer/models"
)

// ReferenceLocation is the zone hours of day are computed in. It is fixed so
// results don't depend on the zone of the host running the analysis.
var ReferenceLocation = time.UTC

// AggregateHours counts comments per hour of day (0-23). Only hours that have
// at least one comment are present.
func AggregateHours(comments []models.Comment, loc *time.Location) map[int]int {
	if loc == nil {
		loc = ReferenceLocation
	}

	hours := make(map[int]int)
	for _, c := range comments {
		hours[c.CreatedAt.In(loc).Hour()]++
	}
	return hours
}
