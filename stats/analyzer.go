package stats

import (
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/thread-analyzer/models"
)

const (
	defaultTopCommentsLimit = 10
	defaultTopAuthorsLimit  = 10
	defaultTopWordsLimit    = 20

	bodyPreviewLength = 200
	ellipsis          = "..."
)

// AnalyzerOptions overrides the ranking sizes; zero values keep the defaults
type AnalyzerOptions struct {
	TopComments int
	TopAuthors  int
	TopWords    int
}

// Analyzer turns a thread into an AnalysisResult. It holds no per-thread
// state and is safe for concurrent use.
type Analyzer struct {
	topCommentsLimit int
	topAuthorsLimit  int
	topWordsLimit    int
	log              *logrus.Logger
}

// NewAnalyzer creates an analyzer with the default ranking sizes
func NewAnalyzer(log *logrus.Logger) *Analyzer {
	return NewAnalyzerWithOptions(AnalyzerOptions{}, log)
}

// NewAnalyzerWithOptions creates an analyzer with custom ranking sizes
func NewAnalyzerWithOptions(opts AnalyzerOptions, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	return &Analyzer{
		topCommentsLimit: positiveOr(opts.TopComments, defaultTopCommentsLimit),
		topAuthorsLimit:  positiveOr(opts.TopAuthors, defaultTopAuthorsLimit),
		topWordsLimit:    positiveOr(opts.TopWords, defaultTopWordsLimit),
		log:              log,
	}
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// AnalyzeThread parses a raw thread payload and analyzes it
func (a *Analyzer) AnalyzeThread(data []byte) (*models.AnalysisResult, error) {
	thread, err := ParseThread(data)
	if err != nil {
		return nil, err
	}
	return a.Analyze(thread.Post, thread.Comments)
}

// Detail parses a raw thread payload into the post and its flattened comments
func (a *Analyzer) Detail(data []byte) (*models.ThreadDetail, error) {
	thread, err := ParseThread(data)
	if err != nil {
		return nil, err
	}

	comments, err := ExtractComments(thread.Comments, 0)
	if err != nil {
		return nil, err
	}

	return &models.ThreadDetail{
		Post:         thread.Post,
		Comments:     comments,
		CommentCount: len(comments),
	}, nil
}

// Analyze extracts the comment tree once and runs every aggregation over the
// flattened comments
func (a *Analyzer) Analyze(post models.Post, nodes []models.RawNode) (*models.AnalysisResult, error) {
	comments, err := ExtractComments(nodes, 0)
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		PostID:        post.ID,
		PostTitle:     post.Title,
		TotalComments: len(comments),
		TotalScore:    post.Score,
		UpvoteRatio:   post.UpvoteRatio,
	}

	// each aggregator only reads comments and writes its own field
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		result.CommentStats = AggregateScores(comments)
	}()
	go func() {
		defer wg.Done()
		result.AuthorStats = AggregateAuthors(comments, a.topAuthorsLimit)
	}()
	go func() {
		defer wg.Done()
		result.TimeDistribution = AggregateHours(comments, ReferenceLocation)
	}()
	go func() {
		defer wg.Done()
		result.WordFrequency = AggregateWords(comments, a.topWordsLimit)
	}()

	result.TopComments = topComments(comments, a.topCommentsLimit)
	wg.Wait()

	a.log.WithFields(logrus.Fields{
		"post_id":        post.ID,
		"total_comments": result.TotalComments,
		"unique_authors": result.AuthorStats.UniqueAuthors,
		"distinct_hours": len(result.TimeDistribution),
	}).Debug("Analyzed thread")

	return result, nil
}

// topComments ranks comments by score without reordering the input
func topComments(comments []models.Comment, limit int) []models.TopComment {
	ranked := make([]models.Comment, len(comments))
	copy(ranked, comments)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	top := make([]models.TopComment, 0, len(ranked))
	for _, c := range ranked {
		top = append(top, models.TopComment{
			Author:    c.Author,
			Body:      truncateBody(c.Body, bodyPreviewLength),
			Score:     c.Score,
			CreatedAt: c.CreatedAt,
		})
	}
	return top
}

// truncateBody cuts body to limit characters and marks the cut with an ellipsis
func truncateBody(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + ellipsis
}
