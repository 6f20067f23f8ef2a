package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/thread-analyzer/api"
	"github.com/brettboylen/thread-analyzer/models"
	"github.com/brettboylen/thread-analyzer/stats"
)

const (
	defaultSubmissionsLimit = 25
	maxSubmissionsLimit     = 100
)

// RedditClient fetches threads and search results from Reddit
type RedditClient interface {
	FetchThread(ctx context.Context, permalink string, limit int) ([]byte, error)
	Search(ctx context.Context, params api.SearchParams) ([]models.Post, error)
	GetRateLimitStatus() (remaining, reset, used int)
}

// PostStore indexes the posts the API has seen
type PostStore interface {
	SavePosts(posts []models.Post) error
	GetRecentPosts(limit int) ([]models.Post, error)
	GetTopPostsByScore(limit int) ([]models.Post, error)
	GetPostsBySubreddit(subreddit string, limit int) ([]models.Post, error)
	GetTotalPosts() (int, error)
}

// Config holds the HTTP server settings
type Config struct {
	Port              int
	AllowOrigins      []string
	RequestsPerMinute int
	CommentLimit      int
}

// Server is the HTTP API in front of the analyzer
type Server struct {
	echo     *echo.Echo
	config   Config
	client   RedditClient
	store    PostStore
	analyzer *stats.Analyzer
	log      *logrus.Logger
}

// New creates the server and registers its routes
func New(config Config, client RedditClient, store PostStore, analyzer *stats.Analyzer, log *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		config:   config,
		client:   client,
		store:    store,
		analyzer: analyzer,
		log:      log,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// ServeHTTP lets the server be mounted or exercised with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) registerMiddleware() {
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return ulid.Make().String()
		},
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("Request failed")
				return nil
			}
			entry.Info("Request handled")
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	if s.config.RequestsPerMinute <= 0 {
		return
	}

	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(s.config.RequestsPerMinute) / 60.0),
				Burst:     5,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, errorBody("Could not identify client"))
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, errorBody("Rate limit exceeded, please try again later"))
		},
	}
	s.echo.Use(middleware.RateLimiterWithConfig(rateLimiterConfig))
}

func (s *Server) registerRoutes() {
	s.echo.GET("/api/analyze/:postId", s.handleAnalyze)
	s.echo.GET("/api/post/:postId", s.handlePost)
	s.echo.GET("/api/search", s.handleSearch)
	s.echo.GET("/api/submissions", s.handleRecentSubmissions)
	s.echo.GET("/api/submissions/top", s.handleTopSubmissions)

	s.echo.GET("/api/health", s.handleHealth)

	// liveness probe
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}

// Start serves on the configured port until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		serverAddr := fmt.Sprintf(":%d", s.config.Port)
		s.log.WithField("port", s.config.Port).Info("Starting API server")
		if err := s.echo.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleAnalyze(c echo.Context) error {
	postID := c.Param("postId")
	permalink := c.QueryParam("permalink")
	if permalink == "" {
		return c.JSON(http.StatusBadRequest, errorBody("permalink query parameter is required"))
	}

	s.log.WithFields(logrus.Fields{
		"post_id":   postID,
		"permalink": permalink,
	}).Info("Analyzing thread")

	thread, err := s.fetchThread(c.Request().Context(), permalink)
	if err != nil {
		return s.errorResponse(c, err)
	}

	result, err := s.analyzer.Analyze(thread.Post, thread.Comments)
	if err != nil {
		return s.errorResponse(c, err)
	}

	s.remember(thread.Post)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handlePost(c echo.Context) error {
	permalink := c.QueryParam("permalink")
	if permalink == "" {
		return c.JSON(http.StatusBadRequest, errorBody("permalink query parameter is required"))
	}

	data, err := s.client.FetchThread(c.Request().Context(), permalink, s.config.CommentLimit)
	if err != nil {
		return s.errorResponse(c, err)
	}

	detail, err := s.analyzer.Detail(data)
	if err != nil {
		return s.errorResponse(c, err)
	}

	s.remember(detail.Post)
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) handleSearch(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return c.JSON(http.StatusBadRequest, errorBody("keyword query parameter is required"))
	}

	subreddit := c.QueryParam("subreddit")
	if subreddit == "" {
		subreddit = "all"
	}

	posts, err := s.client.Search(c.Request().Context(), api.SearchParams{
		Keyword:   keyword,
		Subreddit: subreddit,
		Sort:      c.QueryParam("sort"),
		Time:      c.QueryParam("time"),
		Limit:     queryInt(c, "limit", 50),
	})
	if err != nil {
		return s.errorResponse(c, err)
	}

	s.remember(posts...)
	return c.JSON(http.StatusOK, models.SearchResult{
		Keyword:   keyword,
		Subreddit: subreddit,
		Count:     len(posts),
		Posts:     posts,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	remaining, reset, used := s.client.GetRateLimitStatus()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"redditRateLimit": map[string]int{
			"remaining":    remaining,
			"resetSeconds": reset,
			"used":         used,
		},
	})
}

// handleRecentSubmissions lists recently seen posts, or the top posts of
// one subreddit when ?subreddit= is given
func (s *Server) handleRecentSubmissions(c echo.Context) error {
	subreddit := c.QueryParam("subreddit")
	if subreddit == "" {
		return s.listSubmissions(c, s.store.GetRecentPosts)
	}
	if !api.ValidSubreddit(subreddit) {
		return s.errorResponse(c, fmt.Errorf("%w: %q", api.ErrInvalidSubreddit, subreddit))
	}
	return s.listSubmissions(c, func(limit int) ([]models.Post, error) {
		return s.store.GetPostsBySubreddit(subreddit, limit)
	})
}

func (s *Server) handleTopSubmissions(c echo.Context) error {
	return s.listSubmissions(c, s.store.GetTopPostsByScore)
}

func (s *Server) listSubmissions(c echo.Context, query func(limit int) ([]models.Post, error)) error {
	limit := queryInt(c, "limit", defaultSubmissionsLimit)
	if limit < 1 || limit > maxSubmissionsLimit {
		limit = defaultSubmissionsLimit
	}

	posts, err := query(limit)
	if err != nil {
		return s.errorResponse(c, err)
	}

	total, err := s.store.GetTotalPosts()
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total": total,
		"count": len(posts),
		"posts": posts,
	})
}

func (s *Server) fetchThread(ctx context.Context, permalink string) (*stats.Thread, error) {
	data, err := s.client.FetchThread(ctx, permalink, s.config.CommentLimit)
	if err != nil {
		return nil, err
	}
	return stats.ParseThread(data)
}

// remember indexes posts; a failing index never fails the request
func (s *Server) remember(posts ...models.Post) {
	if s.store == nil || len(posts) == 0 {
		return
	}
	if err := s.store.SavePosts(posts); err != nil {
		s.log.WithError(err).WithField("count", len(posts)).Warn("Failed to index posts")
	}
}

// errorResponse maps an error to a status code and JSON error body
func (s *Server) errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError

	var statusErr *api.StatusError
	switch {
	case errors.Is(err, api.ErrInvalidPermalink), errors.Is(err, api.ErrInvalidSubreddit):
		status = http.StatusBadRequest
	case errors.Is(err, stats.ErrMalformedPayload):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrResponseTooLarge):
		status = http.StatusBadGateway
	case errors.As(err, &statusErr):
		status = http.StatusBadGateway
		if statusErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	entry := s.log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	return c.JSON(status, errorBody(err.Error()))
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func queryInt(c echo.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return value
}
