package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
)

// maxPageSize is the per-request limit for accounts without apihighlimits.
const maxPageSize = 500

type queryResponse struct {
	Continue map[string]json.RawMessage `json:"continue"`
	Query    map[string]json.RawMessage `json:"query"`
}

// page fetches one page of an action=query request and returns its "query"
// object together with the parameters needed to fetch the next page. A nil
// continuation means this was the last page.
func (c *Client) page(ctx context.Context, params url.Values) (map[string]json.RawMessage, map[string]string, error) {
	var resp queryResponse
	if err := c.call(ctx, http.MethodGet, params, &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.Continue) == 0 {
		return resp.Query, nil, nil
	}
	cont := make(map[string]string, len(resp.Continue))
	for k, raw := range resp.Continue {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		cont[k] = s
	}
	return resp.Query, cont, nil
}

// paginate turns a list query into a lazy sequence. Pages are requested only
// as the consumer advances; stopping the range stops further requests. A
// positive limit caps the page size and the number of items yielded.
func paginate[T any](
	ctx context.Context,
	c *Client,
	params url.Values,
	limitParam string,
	limit int,
	extract func(query map[string]json.RawMessage) ([]T, error),
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		params := cloneValues(params)
		params.Set("action", "query")
		params.Set("continue", "")
		if limit > 0 && limit < maxPageSize {
			params.Set(limitParam, strconv.Itoa(limit))
		} else {
			params.Set(limitParam, "max")
		}

		yielded := 0
		for {
			query, cont, err := c.page(ctx, params)
			if err != nil {
				yield(zero, err)
				return
			}
			items, err := extract(query)
			if err != nil {
				yield(zero, fmt.Errorf("decoding %s: %w", endpointLabel(params), err))
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
				yielded++
				if limit > 0 && yielded >= limit {
					return
				}
			}
			if cont == nil {
				return
			}
			for k, v := range cont {
				params.Set(k, v)
			}
		}
	}
}

// member decodes query[key] into v; a missing key leaves v untouched, which
// is how the API reports an empty list.
func member(query map[string]json.RawMessage, key string, v interface{}) error {
	raw, ok := query[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
