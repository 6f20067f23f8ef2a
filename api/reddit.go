package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/thread-analyzer/models"
	"github.com/brettboylen/thread-analyzer/stats"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	authURL       = "https://www.reddit.com/api/v1/access_token"

	defaultCommentLimit = 500
	defaultSearchLimit  = 50
	maxSearchLimit      = 100
	maxResponseBytes    = 32 << 20
	safetyFactor        = 0.95
)

var (
	// ErrInvalidPermalink is returned for permalinks that don't point at a thread
	ErrInvalidPermalink = errors.New("invalid thread permalink")
	// ErrInvalidSubreddit is returned for subreddit names Reddit would reject
	ErrInvalidSubreddit = errors.New("invalid subreddit name")
	// ErrResponseTooLarge is returned when a response body exceeds the client's size cap
	ErrResponseTooLarge = errors.New("response too large")

	permalinkPattern = regexp.MustCompile(`^/r/[A-Za-z0-9_]+/comments/[A-Za-z0-9]+(/[^?#]*)?$`)
	subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_+]+$`)
)

// StatusError is returned when Reddit answers with a non-200 status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// SearchParams are the query parameters of a subreddit search
type SearchParams struct {
	Keyword   string
	Subreddit string
	Sort      string
	Time      string
	Limit     int
}

// RedditAPI represents a Reddit API client. Without credentials it uses the
// public JSON endpoints; with credentials it uses application-only OAuth.
type RedditAPI struct {
	clientID            string
	clientSecret        string
	userAgent           string
	baseURL             string
	authURL             string
	httpClient          *http.Client
	accessToken         string
	tokenExpiry         time.Time
	mutex               sync.RWMutex
	log                 *logrus.Logger
	limiter             *rate.Limiter
	baseLimit           rate.Limit
	maxBodyBytes        int64
	rateRemainingCached int
	rateResetCached     int
	rateUsedCached      int
	rateHeadersMutex    sync.RWMutex
}

// NewRedditAPI creates a new Reddit API client
func NewRedditAPI(clientID, clientSecret, userAgent string, maxRequestsPerMinute int, log *logrus.Logger) *RedditAPI {
	// default to 100 requests per minute (real Reddit limit)
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 100
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	// use 95% of the allowed rate; no burst
	requestsPerSecond := rate.Limit(float64(maxRequestsPerMinute) / 60.0 * safetyFactor)

	baseURL := publicBaseURL
	if clientID != "" && clientSecret != "" {
		baseURL = oauthBaseURL
	}

	return &RedditAPI{
		clientID:        clientID,
		clientSecret:    clientSecret,
		userAgent:       userAgent,
		baseURL:         baseURL,
		authURL:         authURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		log:             log,
		limiter:         rate.NewLimiter(requestsPerSecond, 1),
		baseLimit:       requestsPerSecond,
		maxBodyBytes:    maxResponseBytes,
		rateResetCached: 600,
	}
}

// WithEndpoints points the client at different hosts, e.g. a mirror or a test server
func (r *RedditAPI) WithEndpoints(baseURL, tokenURL string) *RedditAPI {
	r.baseURL = strings.TrimRight(baseURL, "/")
	if tokenURL != "" {
		r.authURL = tokenURL
	}
	return r
}

// GetRateLimitStatus returns the current rate limit status (remaining requests, reset time in seconds, and used requests)
func (r *RedditAPI) GetRateLimitStatus() (int, int, int) {
	r.rateHeadersMutex.RLock()
	defer r.rateHeadersMutex.RUnlock()
	return r.rateRemainingCached, r.rateResetCached, r.rateUsedCached
}

func (r *RedditAPI) usesOAuth() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// authenticate fetches an application-only token when credentials are configured
func (r *RedditAPI) authenticate(ctx context.Context) error {
	if !r.usesOAuth() {
		return nil
	}

	r.mutex.RLock()
	token := r.accessToken
	expiry := r.tokenExpiry
	r.mutex.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return nil
	}

	r.log.Info("Authenticating with Reddit API")

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait during authentication: %w", err)
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("auth request: %w", &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var authResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	r.mutex.Lock()
	r.accessToken = authResp.AccessToken
	// refresh a minute before Reddit expires the token
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	r.mutex.Unlock()

	r.log.Info("Successfully authenticated with Reddit API")
	return nil
}

// FetchThread fetches the raw thread JSON (post listing + comment listing)
// for a permalink such as /r/golang/comments/abc123/title/
func (r *RedditAPI) FetchThread(ctx context.Context, permalink string, limit int) ([]byte, error) {
	path, err := NormalizePermalink(permalink)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultCommentLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")

	r.log.WithFields(logrus.Fields{
		"permalink": path,
		"limit":     limit,
	}).Info("Fetching thread from Reddit API")

	return r.get(ctx, strings.TrimRight(path, "/")+".json", query)
}

// Search runs a keyword search, restricted to a subreddit unless it is "all"
func (r *RedditAPI) Search(ctx context.Context, params SearchParams) ([]models.Post, error) {
	if params.Keyword == "" {
		return nil, errors.New("search keyword is required")
	}
	if params.Subreddit == "" {
		params.Subreddit = "all"
	}
	if !ValidSubreddit(params.Subreddit) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubreddit, params.Subreddit)
	}
	if params.Sort == "" {
		params.Sort = "relevance"
	}
	if params.Time == "" {
		params.Time = "all"
	}
	if params.Limit <= 0 {
		params.Limit = defaultSearchLimit
	}
	if params.Limit > maxSearchLimit {
		params.Limit = maxSearchLimit
	}

	query := url.Values{}
	query.Set("q", params.Keyword)
	query.Set("sort", params.Sort)
	query.Set("t", params.Time)
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("restrict_sr", strconv.FormatBool(params.Subreddit != "all"))
	query.Set("raw_json", "1")

	r.log.WithFields(logrus.Fields{
		"keyword":   params.Keyword,
		"subreddit": params.Subreddit,
		"limit":     params.Limit,
	}).Info("Searching Reddit")

	body, err := r.get(ctx, fmt.Sprintf("/r/%s/search.json", params.Subreddit), query)
	if err != nil {
		return nil, err
	}

	var listing models.PostListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	posts := make([]models.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != models.KindPost {
			continue
		}
		posts = append(posts, stats.NormalizePost(child))
	}

	r.log.WithFields(logrus.Fields{
		"keyword":    params.Keyword,
		"post_count": len(posts),
	}).Debug("Search finished")

	return posts, nil
}

// get performs a rate limited GET against the API host and returns the body
func (r *RedditAPI) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := r.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)
	if r.usesOAuth() {
		r.mutex.RLock()
		token := r.accessToken
		r.mutex.RUnlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	r.updateRateLimits(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		r.log.WithFields(logrus.Fields{
			"path":          path,
			"response_body": string(body),
			"status_code":   resp.StatusCode,
		}).Error("Reddit API error response")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > r.maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, path, r.maxBodyBytes)
	}
	return body, nil
}

// ValidSubreddit reports whether name is a subreddit name Reddit accepts
func ValidSubreddit(name string) bool {
	return subredditPattern.MatchString(name)
}

// NormalizePermalink accepts a thread permalink or a full reddit URL and
// returns the path part, rejecting anything that isn't a comments page
func NormalizePermalink(permalink string) (string, error) {
	permalink = strings.TrimSpace(permalink)
	if strings.HasPrefix(permalink, "http://") || strings.HasPrefix(permalink, "https://") {
		u, err := url.Parse(permalink)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPermalink, err)
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if host != "reddit.com" && host != "old.reddit.com" {
			return "", fmt.Errorf("%w: unexpected host %q", ErrInvalidPermalink, u.Host)
		}
		permalink = u.Path
	}

	permalink = strings.TrimSuffix(permalink, ".json")
	if !permalinkPattern.MatchString(permalink) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermalink, permalink)
	}
	return permalink, nil
}

// updateRateLimits caches the X-Ratelimit headers of a response and slows
// the limiter down when the remaining budget would not last until the reset
func (r *RedditAPI) updateRateLimits(resp *http.Response) {
	// X-Ratelimit-Used: Approximate number of requests used in this period
	// X-Ratelimit-Remaining: Approximate number of requests left to use
	// X-Ratelimit-Reset: Approximate number of seconds to end of period
	used := getHeaderAsInt(resp.Header, "X-Ratelimit-Used")
	remaining := getHeaderAsInt(resp.Header, "X-Ratelimit-Remaining")
	reset := getHeaderAsInt(resp.Header, "X-Ratelimit-Reset")

	// skip if we didn't get valid headers for some reason
	if reset == 0 && used == 0 {
		return
	}

	r.rateHeadersMutex.Lock()
	r.rateRemainingCached = remaining
	r.rateResetCached = reset
	r.rateUsedCached = used
	r.rateHeadersMutex.Unlock()

	limit := r.limiter.Limit()
	if resp.Header.Get("X-Ratelimit-Remaining") != "" {
		limit = r.paceLimit(remaining, reset)
		if limit != r.limiter.Limit() {
			r.limiter.SetLimit(limit)
		}
	}

	r.log.WithFields(logrus.Fields{
		"used":         used,
		"remaining":    remaining,
		"reset_sec":    reset,
		"requests_sec": float64(limit),
	}).Debug("Updated rate limit status from Reddit headers")
}

// paceLimit spreads the remaining budget over the seconds left in the
// window, never going above the configured rate
func (r *RedditAPI) paceLimit(remaining, reset int) rate.Limit {
	if reset <= 0 {
		return r.baseLimit
	}
	if remaining < 1 {
		remaining = 1
	}
	windowLimit := rate.Limit(float64(remaining) / float64(reset) * safetyFactor)
	if windowLimit < r.baseLimit {
		return windowLimit
	}
	return r.baseLimit
}

func getHeaderAsInt(header http.Header, name string) int {
	value := header.Get(name)
	if value == "" {
		return 0
	}

	// Reddit sends remaining as a float ("598.0")
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(floatValue)
}
