package models

import (
	"time"
)

// DeletedSentinel replaces a missing or removed author or body
const DeletedSentinel = "[deleted]"

// Post represents a Reddit submission snapshot
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvoteRatio"`
	NumComments int       `json:"numComments"`
	CreatedAt   time.Time `json:"createdAt"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	SelfText    string    `json:"selftext"`
}

// Comment is a single flattened comment; Depth is 0 for direct replies to the post
type Comment struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Body        string    `json:"body"`
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"createdAt"`
	Depth       int       `json:"depth"`
	IsSubmitter bool      `json:"isSubmitter"`
	Permalink   string    `json:"permalink"`
}

// CommentStats holds score statistics over a comment collection
type CommentStats struct {
	TotalScore int     `json:"totalScore"`
	AvgScore   float64 `json:"avgScore"`
	MaxScore   int     `json:"maxScore"`
	MinScore   int     `json:"minScore"`
}

// AuthorStat holds participation numbers for a single author
type AuthorStat struct {
	Author       string  `json:"author"`
	CommentCount int     `json:"commentCount"`
	TotalScore   int     `json:"totalScore"`
	AvgScore     float64 `json:"avgScore"`
}

// AuthorStats holds the author ranking of a thread
type AuthorStats struct {
	UniqueAuthors int          `json:"uniqueAuthors"`
	TopAuthors    []AuthorStat `json:"topAuthors"`
}

// TopComment is the truncated view of a high scoring comment
type TopComment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// WordCount is a term and how often it occurs
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// AnalysisResult is the full analysis of one thread.
// TotalScore is the post score; CommentStats.TotalScore sums the comments.
type AnalysisResult struct {
	PostID           string       `json:"postId"`
	PostTitle        string       `json:"postTitle"`
	TotalComments    int          `json:"totalComments"`
	TotalScore       int          `json:"totalScore"`
	UpvoteRatio      float64      `json:"upvoteRatio"`
	CommentStats     CommentStats `json:"commentStats"`
	AuthorStats      AuthorStats  `json:"authorStats"`
	TopComments      []TopComment `json:"topComments"`
	TimeDistribution map[int]int  `json:"timeDistribution"`
	WordFrequency    []WordCount  `json:"wordFrequency"`
}

// ThreadDetail is a post together with all of its flattened comments
type ThreadDetail struct {
	Post         Post      `json:"post"`
	Comments     []Comment `json:"comments"`
	CommentCount int       `json:"commentCount"`
}

// SearchResult is the response of a keyword search
type SearchResult struct {
	Keyword   string `json:"keyword"`
	Subreddit string `json:"subreddit"`
	Count     int    `json:"count"`
	Posts     []Post `json:"posts"`
}
