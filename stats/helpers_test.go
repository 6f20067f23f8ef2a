package stats

import (
	"time"

	"github.com/brettboylen/thread-analyzer/models"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

// comment builds a t1 node with the given replies
func comment(id, author, body string, score int, replies ...models.RawNode) models.RawNode {
	node := models.RawNode{
		Kind: models.KindComment,
		Data: models.RawNodeData{
			ID:         id,
			Author:     strPtr(author),
			Body:       strPtr(body),
			Score:      intPtr(score),
			CreatedUTC: floatPtr(1700000000),
			Permalink:  "/r/golang/comments/abc/thread/" + id + "/",
		},
	}
	if len(replies) > 0 {
		node.Data.Replies = models.Replies{Listing: &models.Listing{
			Kind: models.KindListing,
			Data: models.ListingData{Children: replies},
		}}
	}
	return node
}

func more(id string) models.RawNode {
	return models.RawNode{Kind: models.KindMore, Data: models.RawNodeData{ID: id, Count: 12}}
}

func flat(author, body string, score int, at time.Time) models.Comment {
	return models.Comment{Author: author, Body: body, Score: score, CreatedAt: at}
}

func ids(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}
