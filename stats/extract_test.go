package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettboylen/thread-analyzer/models"
)

func TestExtractCommentsPreOrder(t *testing.T) {
	tree := []models.RawNode{
		comment("a", "alice", "first", 3,
			comment("a1", "bob", "reply", 1,
				comment("a1x", "carol", "deep", 0),
			),
			more("m1"),
			comment("a2", "dave", "second reply", 2),
		),
		more("m2"),
		comment("b", "erin", "second root", 5),
	}

	comments, err := ExtractComments(tree, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a1", "a1x", "a2", "b"}, ids(comments))

	depths := make([]int, 0, len(comments))
	for _, c := range comments {
		depths = append(depths, c.Depth)
	}
	assert.Equal(t, []int{0, 1, 2, 1, 0}, depths)
}

func TestExtractCommentsDepthFollowsParent(t *testing.T) {
	tree := []models.RawNode{
		comment("r", "x", "b", 0,
			comment("c1", "x", "b", 0, comment("g1", "x", "b", 0)),
			comment("c2", "x", "b", 0),
		),
	}

	comments, err := ExtractComments(tree, 3)
	require.NoError(t, err)
	require.Len(t, comments, 4)

	assert.Equal(t, 3, comments[0].Depth)
	assert.Equal(t, 4, comments[1].Depth)
	assert.Equal(t, 5, comments[2].Depth)
	assert.Equal(t, 4, comments[3].Depth)
}

func TestExtractCommentsSentinels(t *testing.T) {
	tree := []models.RawNode{
		{Kind: models.KindComment, Data: models.RawNodeData{ID: "gone"}},
		{Kind: models.KindComment, Data: models.RawNodeData{ID: "blank", Author: strPtr(""), Body: strPtr("")}},
	}

	comments, err := ExtractComments(tree, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	for _, c := range comments {
		assert.Equal(t, models.DeletedSentinel, c.Author)
		assert.Equal(t, models.DeletedSentinel, c.Body)
		assert.Equal(t, 0, c.Score)
		assert.Equal(t, int64(0), c.CreatedAt.Unix())
		assert.Empty(t, c.Permalink)
	}
}

func TestExtractCommentsFields(t *testing.T) {
	node := comment("abc", "alice", "hello", 7)
	node.Data.IsSubmitter = true
	node.Data.CreatedUTC = floatPtr(1700000000.5)

	comments, err := ExtractComments([]models.RawNode{node}, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	c := comments[0]
	assert.Equal(t, "abc", c.ID)
	assert.Equal(t, "alice", c.Author)
	assert.Equal(t, "hello", c.Body)
	assert.Equal(t, 7, c.Score)
	assert.True(t, c.IsSubmitter)
	assert.Equal(t, "https://reddit.com/r/golang/comments/abc/thread/abc/", c.Permalink)
	assert.Equal(t, int64(1700000000500), c.CreatedAt.UnixMilli())
}

func TestExtractCommentsEmpty(t *testing.T) {
	comments, err := ExtractComments(nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)

	comments, err = ExtractComments([]models.RawNode{more("m")}, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestExtractCommentsMissingKind(t *testing.T) {
	tree := []models.RawNode{
		comment("a", "alice", "ok", 1, models.RawNode{Data: models.RawNodeData{ID: "broken"}}),
	}

	comments, err := ExtractComments(tree, 0)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Nil(t, comments)
}

func TestExtractCommentsCountsEveryComment(t *testing.T) {
	tests := []struct {
		name string
		tree []models.RawNode
		want int
	}{
		{
			name: "flat",
			tree: []models.RawNode{comment("1", "a", "b", 0), comment("2", "a", "b", 0), comment("3", "a", "b", 0)},
			want: 3,
		},
		{
			name: "chain",
			tree: []models.RawNode{comment("1", "a", "b", 0, comment("2", "a", "b", 0, comment("3", "a", "b", 0)))},
			want: 3,
		},
		{
			name: "mixed with more markers",
			tree: []models.RawNode{
				comment("1", "a", "b", 0, more("x"), comment("2", "a", "b", 0)),
				more("y"),
				comment("3", "a", "b", 0, comment("4", "a", "b", 0), comment("5", "a", "b", 0)),
			},
			want: 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			comments, err := ExtractComments(tc.tree, 0)
			require.NoError(t, err)
			assert.Len(t, comments, tc.want)
		})
	}
}

func TestExtractCommentsDeepChain(t *testing.T) {
	const depth = 100000

	node := comment("leaf", "a", "b", 0)
	for i := 0; i < depth-1; i++ {
		node = comment("n", "a", "b", 0, node)
	}

	comments, err := ExtractComments([]models.RawNode{node}, 0)
	require.NoError(t, err)
	require.Len(t, comments, depth)
	assert.Equal(t, depth-1, comments[depth-1].Depth)
	assert.Equal(t, "leaf", comments[depth-1].ID)
}

func TestExtractCommentsRepeatable(t *testing.T) {
	tree := []models.RawNode{comment("a", "alice", "x", 1, comment("b", "bob", "y", 2))}

	first, err := ExtractComments(tree, 0)
	require.NoError(t, err)
	second, err := ExtractComments(tree, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
