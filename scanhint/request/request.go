// Package request shapes the search the external engine runs for an index
// scan once the pushdown directive is known.
package request

import (
	"context"
	"encoding/json"

	"github.com/nonibytes/scanhint/scanhint"
	"github.com/nonibytes/scanhint/scanhint/xid"
)

// ScoreField is the engine's name for the relevance score sort key.
const ScoreField = "_score"

type Query struct {
	QueryString *QueryString `json:"query_string,omitempty"`
	MatchAll    *struct{}    `json:"match_all,omitempty"`
}

type QueryString struct {
	Query string `json:"query"`
}

// SortKey is one entry of the sort list: {"<field>": {"order": "asc"}}.
type SortKey struct {
	Field string
	Order string
}

func (k SortKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]string{k.Field: {"order": k.Order}})
}

func (k *SortKey) UnmarshalJSON(b []byte) error {
	var m map[string]map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return scanhint.New(scanhint.ErrPlanDecode, "sort key must name exactly one field")
	}
	for f, o := range m {
		k.Field, k.Order = f, o["order"]
	}
	return nil
}

type SearchRequest struct {
	Query       Query                `json:"query"`
	Size        *uint64              `json:"size,omitempty"`
	Sort        []SortKey            `json:"sort,omitempty"`
	TrackScores bool                 `json:"track_scores,omitempty"`
	Visibility  *xid.EncodedSnapshot `json:"visibility,omitempty"`
}

// Options carries what Build needs beyond the directive.
type Options struct {
	// Encoder widens Snapshot. Both must be set for visibility to be attached.
	Encoder  *xid.Encoder
	Snapshot *xid.Snapshot
	// DefaultSize applies when the directive has no row limit. Zero leaves
	// the engine's default in place.
	DefaultSize uint64
}

// Build returns the request for query under d. A nil d runs the plain query.
// Sorted requests keep tracking scores so the score stays readable per row.
func Build(ctx context.Context, query string, d *scanhint.Directive, opts Options) (*SearchRequest, error) {
	req := &SearchRequest{}
	if query == "" {
		req.Query.MatchAll = &struct{}{}
	} else {
		req.Query.QueryString = &QueryString{Query: query}
	}

	switch {
	case d != nil && d.RowLimit != nil:
		n := *d.RowLimit
		req.Size = &n
	case opts.DefaultSize > 0:
		n := opts.DefaultSize
		req.Size = &n
	}

	if d.Sorted() {
		field := ScoreField
		if !d.ScoreSort {
			field = *d.SortField
		}
		req.Sort = []SortKey{{Field: field, Order: d.Direction.String()}}
		req.TrackScores = true
	}

	if opts.Snapshot != nil {
		if opts.Encoder == nil {
			return nil, scanhint.ConfigError("encoder", "a visibility snapshot needs an xid encoder")
		}
		vis, err := opts.Encoder.EncodeSnapshot(ctx, *opts.Snapshot)
		if err != nil {
			return nil, scanhint.Wrap(scanhint.ErrIO, "encode visibility snapshot", err)
		}
		req.Visibility = &vis
	}
	return req, nil
}

// JSON renders the request body.
func (r *SearchRequest) JSON() ([]byte, error) {
	return json.Marshal(r)
}
