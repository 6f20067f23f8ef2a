package stats

import (
	"fmt"

	"github.com/brettboylen/thread-analyzer/models"
)

// frame is one level of the traversal: a sibling list and the next index to visit
type frame struct {
	nodes []models.RawNode
	next  int
	depth int
}

// ExtractComments flattens a comment tree into pre-order: every comment is
// followed by its replies (depth+1) before its next sibling. Only t1 nodes
// are extracted; "more" markers and other kinds are skipped without being
// expanded. Nodes without a kind fail with ErrMalformedPayload.
//
// The walk keeps its own stack so very deep threads don't grow the call stack.
func ExtractComments(nodes []models.RawNode, depth int) ([]models.Comment, error) {
	if depth < 0 {
		depth = 0
	}

	comments := make([]models.Comment, 0, len(nodes))
	stack := []frame{{nodes: nodes, depth: depth}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.nodes) {
			stack = stack[:len(stack)-1]
			continue
		}

		node := top.nodes[top.next]
		index, level := top.next, top.depth
		top.next++

		switch node.Kind {
		case models.KindComment:
		case "":
			return nil, fmt.Errorf("%w: node %d at depth %d has no kind", ErrMalformedPayload, index, level)
		default:
			continue
		}

		comments = append(comments, newComment(node.Data, level))

		if replies := node.Data.Replies.Children(); len(replies) > 0 {
			stack = append(stack, frame{nodes: replies, depth: level + 1})
		}
	}

	return comments, nil
}

// newComment normalizes a raw comment; missing author and body become the
// deleted sentinel and a missing score becomes 0
func newComment(data models.RawNodeData, depth int) models.Comment {
	comment := models.Comment{
		ID:          data.ID,
		Author:      orDeleted(data.Author),
		Body:        orDeleted(data.Body),
		Depth:       depth,
		IsSubmitter: data.IsSubmitter,
		Permalink:   absolutePermalink(data.Permalink),
	}
	if data.Score != nil {
		comment.Score = *data.Score
	}
	if data.CreatedUTC != nil {
		comment.CreatedAt = fromUnixSeconds(*data.CreatedUTC)
	} else {
		comment.CreatedAt = fromUnixSeconds(0)
	}
	return comment
}
