package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/brettboylen/thread-analyzer/models"
)

const permalinkHost = "https://reddit.com"

// Thread is a decoded thread payload: the post and its root comment nodes
type Thread struct {
	Post     models.Post
	Comments []models.RawNode
}

// ParseThread decodes the two-element array returned by a Reddit
// "<permalink>.json" request. Element 0 holds the post listing and element 1
// the root comment listing. The payload is read in one streaming pass, so
// reply nesting depth is bounded only by memory.
func ParseThread(data []byte) (*Thread, error) {
	thread, err := decodeThread(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return thread, nil
}

func decodeThread(dec *json.Decoder) (*Thread, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('[') {
		return nil, fmt.Errorf("expected an array of 2 listings, got %v", tok)
	}

	if !dec.More() {
		return nil, errors.New("expected 2 listings, got 0")
	}
	var postListing models.PostListing
	if err := dec.Decode(&postListing); err != nil {
		return nil, fmt.Errorf("post listing: %w", err)
	}

	if !dec.More() {
		return nil, errors.New("expected 2 listings, got 1")
	}
	commentListing, err := models.DecodeListing(dec)
	if err != nil {
		return nil, fmt.Errorf("comment listing: %w", err)
	}

	if dec.More() {
		return nil, errors.New("expected 2 listings, got more")
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after thread array")
	}

	var rawPost *models.RawPost
	for i := range postListing.Data.Children {
		if postListing.Data.Children[i].Kind == models.KindPost {
			rawPost = &postListing.Data.Children[i]
			break
		}
	}
	if rawPost == nil {
		return nil, fmt.Errorf("post listing has no %s child", models.KindPost)
	}

	if commentListing.Data.Children == nil {
		return nil, errors.New("comment listing has no children array")
	}

	return &Thread{
		Post:     NormalizePost(*rawPost),
		Comments: commentListing.Data.Children,
	}, nil
}

// NormalizePost converts a raw post, substituting defaults for missing fields
func NormalizePost(raw models.RawPost) models.Post {
	d := raw.Data
	post := models.Post{
		ID:        d.ID,
		Title:     d.Title,
		Author:    orDeleted(d.Author),
		Subreddit: d.Subreddit,
		CreatedAt: fromUnixSeconds(d.CreatedUTC),
		URL:       d.URL,
		Permalink: absolutePermalink(d.Permalink),
		SelfText:  d.SelfText,
	}
	if d.Score != nil {
		post.Score = *d.Score
	}
	if d.UpvoteRatio != nil {
		post.UpvoteRatio = *d.UpvoteRatio
	}
	if d.NumComments != nil {
		post.NumComments = *d.NumComments
	}
	return post
}

func orDeleted(s *string) string {
	if s == nil || *s == "" {
		return models.DeletedSentinel
	}
	return *s
}

// fromUnixSeconds keeps millisecond precision, same as the API's JS clients
func fromUnixSeconds(sec float64) time.Time {
	return time.UnixMilli(int64(math.Round(sec * 1000))).UTC()
}

func absolutePermalink(permalink string) string {
	if permalink == "" {
		return ""
	}
	return permalinkHost + permalink
}
