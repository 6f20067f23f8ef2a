package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type frameKind int

const (
	frameListing frameKind = iota
	frameListingData
	frameChildren
	frameNode
	frameNodeData
)

// decodeFrame is one open JSON object or array of a comment listing
type decodeFrame struct {
	kind     frameKind
	listing  *Listing
	data     *ListingData
	children *[]RawNode
	node     *RawNode
	fields   *RawNodeData
}

// DecodeListing reads one listing object from dec, including every nested
// replies listing. Open objects are tracked on an explicit stack, so reply
// chains of any depth are read in a single pass over the input.
func DecodeListing(dec *json.Decoder) (*Listing, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	root := &Listing{}
	stack := []decodeFrame{{kind: frameListing, listing: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.kind == frameChildren {
			tok, err := token(dec)
			if err != nil {
				return nil, err
			}
			switch tok {
			case json.Delim(']'):
				stack = stack[:len(stack)-1]
			case json.Delim('{'):
				*top.children = append(*top.children, RawNode{})
				node := &(*top.children)[len(*top.children)-1]
				stack = append(stack, decodeFrame{kind: frameNode, node: node})
			default:
				return nil, fmt.Errorf("children: expected a node object, got %v", tok)
			}
			continue
		}

		key, closed, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		if closed {
			stack = stack[:len(stack)-1]
			continue
		}

		var next *decodeFrame
		switch top.kind {
		case frameListing:
			next, err = decodeListingField(dec, top.listing, key)
		case frameListingData:
			next, err = decodeListingDataField(dec, top.data, key)
		case frameNode:
			next, err = decodeNodeField(dec, top.node, key)
		case frameNodeData:
			next, err = decodeNodeDataField(dec, top.fields, key)
		}
		if err != nil {
			return nil, err
		}
		if next != nil {
			stack = append(stack, *next)
		}
	}

	return root, nil
}

func decodeListingField(dec *json.Decoder, listing *Listing, key string) (*decodeFrame, error) {
	switch key {
	case "kind":
		return nil, dec.Decode(&listing.Kind)
	case "data":
		open, err := openObject(dec, key)
		if err != nil || !open {
			return nil, err
		}
		return &decodeFrame{kind: frameListingData, data: &listing.Data}, nil
	}
	return nil, skipValue(dec)
}

func decodeListingDataField(dec *json.Decoder, data *ListingData, key string) (*decodeFrame, error) {
	switch key {
	case "after":
		return nil, dec.Decode(&data.After)
	case "before":
		return nil, dec.Decode(&data.Before)
	case "children":
		tok, err := token(dec)
		if err != nil {
			return nil, err
		}
		switch tok {
		case nil:
			data.Children = nil
			return nil, nil
		case json.Delim('['):
			data.Children = []RawNode{}
			return &decodeFrame{kind: frameChildren, children: &data.Children}, nil
		}
		return nil, fmt.Errorf("children: expected an array, got %v", tok)
	}
	return nil, skipValue(dec)
}

func decodeNodeField(dec *json.Decoder, node *RawNode, key string) (*decodeFrame, error) {
	switch key {
	case "kind":
		return nil, dec.Decode(&node.Kind)
	case "data":
		open, err := openObject(dec, key)
		if err != nil || !open {
			return nil, err
		}
		return &decodeFrame{kind: frameNodeData, fields: &node.Data}, nil
	}
	return nil, skipValue(dec)
}

func decodeNodeDataField(dec *json.Decoder, fields *RawNodeData, key string) (*decodeFrame, error) {
	var target interface{}
	switch key {
	case "id":
		target = &fields.ID
	case "author":
		target = &fields.Author
	case "body":
		target = &fields.Body
	case "score":
		target = &fields.Score
	case "created_utc":
		target = &fields.CreatedUTC
	case "is_submitter":
		target = &fields.IsSubmitter
	case "permalink":
		target = &fields.Permalink
	case "count":
		target = &fields.Count
	case "replies":
		return decodeReplies(dec, &fields.Replies)
	default:
		return nil, skipValue(dec)
	}
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return nil, nil
}

// decodeReplies accepts "", null or a listing; a listing is pushed as a new frame
func decodeReplies(dec *json.Decoder, replies *Replies) (*decodeFrame, error) {
	tok, err := token(dec)
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case nil:
		replies.Listing = nil
		return nil, nil
	case string:
		if v != "" {
			return nil, errRepliesShape
		}
		replies.Listing = nil
		return nil, nil
	case json.Delim:
		if v == '{' {
			replies.Listing = &Listing{}
			return &decodeFrame{kind: frameListing, listing: replies.Listing}, nil
		}
	}
	return nil, errRepliesShape
}

// openObject consumes the start of an object value; null reports false
func openObject(dec *json.Decoder, key string) (bool, error) {
	tok, err := token(dec)
	if err != nil {
		return false, err
	}
	switch tok {
	case nil:
		return false, nil
	case json.Delim('{'):
		return true, nil
	}
	return false, fmt.Errorf("%s: expected an object, got %v", key, tok)
}

func nextKey(dec *json.Decoder) (string, bool, error) {
	tok, err := token(dec)
	if err != nil {
		return "", false, err
	}
	if tok == json.Delim('}') {
		return "", true, nil
	}
	key, ok := tok.(string)
	if !ok {
		return "", false, fmt.Errorf("expected an object key, got %v", tok)
	}
	return key, false, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := token(dec)
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// skipValue discards the next value, however deeply nested
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := token(dec)
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

// token is dec.Token with end of input inside a value reported as truncation
func token(dec *json.Decoder) (json.Token, error) {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}
