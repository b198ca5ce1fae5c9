package stateset

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
)

// ErrStreamDone is returned by Stream.Next when the stream is exhausted.
var ErrStreamDone = errors.New("no more items in stream")

// listEnvelope is the wire shape of paginated list responses. Newer
// endpoints send next_page, older ones send next; next_page wins when
// both are present.
type listEnvelope struct {
	Data     []json.RawMessage `json:"data"`
	NextPage *string           `json:"next_page"`
	Next     *string           `json:"next"`
}

func (e *listEnvelope) cursor() string {
	if e.NextPage != nil {
		return *e.NextPage
	}
	if e.Next != nil {
		return *e.Next
	}
	return ""
}

// Stream iterates lazily over a paginated list endpoint, fetching pages
// on demand as items are consumed. A page fetch failure ends the stream;
// an item that fails to decode is reported from Next and then skipped, so
// iteration can continue past it. Streams are not safe for concurrent use.
type Stream[T any] struct {
	client  *Client
	next    string
	query   url.Values
	items   []json.RawMessage
	index   int
	started bool
	done    bool
}

// NewStream starts a stream over the given list endpoint. The query is
// sent with the first page only; subsequent pages follow the server's
// cursor verbatim.
func NewStream[T any](client *Client, path string, query url.Values) *Stream[T] {
	return &Stream[T]{client: client, next: path, query: query}
}

// List starts a stream using a ListOptions builder for the first page.
func List[T any](client *Client, path string, opts *ListOptions) *Stream[T] {
	return NewStream[T](client, path, opts.Values())
}

// Next returns the next item, fetching the following page when the current
// one is exhausted. It returns ErrStreamDone once the stream ends: a page
// with an empty data array, or no cursor after the last item.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if s.index < len(s.items) {
			raw := s.items[s.index]
			s.index++
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				return zero, Network("failed to decode stream item: "+err.Error(), false, false)
			}
			return item, nil
		}

		if s.done || (s.started && s.next == "") {
			s.done = true
			return zero, ErrStreamDone
		}

		query := s.query
		if s.started {
			query = nil
		}
		var envelope listEnvelope
		if err := s.client.GetWithQuery(ctx, s.next, query, &envelope); err != nil {
			s.done = true
			return zero, err
		}
		s.started = true
		s.items = envelope.Data
		s.index = 0
		s.next = envelope.cursor()

		if len(s.items) == 0 {
			s.done = true
			return zero, ErrStreamDone
		}
	}
}

// CollectAll drains the stream into a slice. It stops at the first error,
// returning the items gathered so far alongside it.
func (s *Stream[T]) CollectAll(ctx context.Context) ([]T, error) {
	var items []T
	for {
		item, err := s.Next(ctx)
		if errors.Is(err, ErrStreamDone) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

type countEnvelope struct {
	Count int64 `json:"count"`
}

// Count asks a list endpoint for its total size without transferring
// items, by sending count_only=true.
func (c *Client) Count(ctx context.Context, path string, query url.Values) (int64, error) {
	merged := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	merged.Set("count_only", "true")

	var envelope countEnvelope
	if err := c.GetWithQuery(ctx, path, merged, &envelope); err != nil {
		return 0, err
	}
	return envelope.Count, nil
}
