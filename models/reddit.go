package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Reddit "thing" kinds found in thread payloads
const (
	KindListing = "Listing"
	KindComment = "t1"
	KindPost    = "t3"
	KindMore    = "more"
)

// errRepliesShape is returned when replies is neither empty nor a listing
var errRepliesShape = errors.New("replies must be an empty string, null or a listing object")

// Listing is the Reddit API container for a page of things
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData holds the children of a listing.
// Children is nil when the payload has no children array.
type ListingData struct {
	After    string    `json:"after"`
	Before   string    `json:"before"`
	Children []RawNode `json:"children"`
}

// RawNode is a single node of the comment tree as returned by the Reddit API
type RawNode struct {
	Kind string      `json:"kind"`
	Data RawNodeData `json:"data"`
}

// RawNodeData holds comment fields; pointer fields may be null in the payload.
// "more" nodes decode into it too and only keep ID and Count.
type RawNodeData struct {
	ID          string   `json:"id"`
	Author      *string  `json:"author"`
	Body        *string  `json:"body"`
	Score       *int     `json:"score"`
	CreatedUTC  *float64 `json:"created_utc"`
	IsSubmitter bool     `json:"is_submitter"`
	Permalink   string   `json:"permalink"`
	Count       int      `json:"count"`
	Replies     Replies  `json:"replies"`
}

// Replies is the nested listing of a comment. Reddit sends an empty
// string instead of a listing when a comment has no replies.
type Replies struct {
	Listing *Listing
}

// UnmarshalJSON accepts "", null or a listing object. Nested replies are
// read by DecodeListing rather than by recursive calls back into this method.
func (r *Replies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		r.Listing = nil
		return nil
	}
	if trimmed[0] != '{' {
		return errRepliesShape
	}

	listing, err := DecodeListing(json.NewDecoder(bytes.NewReader(trimmed)))
	if err != nil {
		return err
	}
	r.Listing = listing
	return nil
}

// MarshalJSON writes the listing or an empty string, mirroring the API
func (r Replies) MarshalJSON() ([]byte, error) {
	if r.Listing == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(r.Listing)
}

// Children returns the reply nodes, or nil when there are none
func (r Replies) Children() []RawNode {
	if r.Listing == nil {
		return nil
	}
	return r.Listing.Data.Children
}

// RawPost represents the Reddit API response structure for a post
type RawPost struct {
	Kind string `json:"kind"`
	Data struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Author      *string  `json:"author"`
		Subreddit   string   `json:"subreddit"`
		Score       *int     `json:"score"`
		UpvoteRatio *float64 `json:"upvote_ratio"`
		NumComments *int     `json:"num_comments"`
		CreatedUTC  float64  `json:"created_utc"`
		URL         string   `json:"url"`
		Permalink   string   `json:"permalink"`
		SelfText    string   `json:"selftext"`
	} `json:"data"`
}

// PostListing is a listing whose children are posts (search results, thread heads)
type PostListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string    `json:"after"`
		Before   string    `json:"before"`
		Children []RawPost `json:"children"`
	} `json:"data"`
}
