package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
)

// Wire tags of the request variants.
const (
	TypeLookup       = "lookup"
	TypeGetCached    = "get_cached"
	TypePrefetch     = "prefetch"
	TypeTabActivated = "tab_activated"
	TypeTabClosed    = "tab_closed"
)

// ErrUnknownRequest is returned for a request type Handle does not know.
var ErrUnknownRequest = errors.New("unknown request type")

// Request is one of LookupRequest, GetCachedRequest, PrefetchRequest,
// TabActivatedRequest or TabClosedRequest.
type Request interface {
	Type() string
}

// ReferenceFields is the structured form of a reference on the wire.
type ReferenceFields struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	VerseStart int    `json:"verseStart,omitempty"`
	VerseEnd   int    `json:"verseEnd,omitempty"`
}

func (f ReferenceFields) reference() bible.Reference {
	return bible.Reference{Book: f.Book, Chapter: f.Chapter, VerseStart: f.VerseStart, VerseEnd: f.VerseEnd}
}

// LookupRequest resolves a reference for a tab. It is asynchronous: Handle
// replies empty and the result reaches the tab's subscribers.
type LookupRequest struct {
	TabID     TabID  `json:"tabId"`
	Reference string `json:"reference,omitempty"`
	ReferenceFields
}

// GetCachedRequest probes the caches. Handle replies synchronously with the
// content or a nil Content; it never fetches.
type GetCachedRequest struct {
	Reference string `json:"reference"`
}

// PrefetchRequest warms the caches. Handle starts it in the background and
// returns at once.
type PrefetchRequest struct {
	Requests []ReferenceFields `json:"requests"`
}

// TabActivatedRequest reports a tab switch. Handled synchronously.
type TabActivatedRequest struct {
	TabID TabID `json:"tabId"`
}

// TabClosedRequest reports a closed tab. Handled synchronously.
type TabClosedRequest struct {
	TabID TabID `json:"tabId"`
}

func (LookupRequest) Type() string       { return TypeLookup }
func (GetCachedRequest) Type() string    { return TypeGetCached }
func (PrefetchRequest) Type() string     { return TypePrefetch }
func (TabActivatedRequest) Type() string { return TypeTabActivated }
func (TabClosedRequest) Type() string    { return TypeTabClosed }

// Reply is the synchronous answer to a request. Only GetCachedRequest fills it.
type Reply struct {
	Content *bible.VerseContent `json:"content"`
}

// reference prefers the structured fields and falls back to parsing the label.
func (r LookupRequest) reference() (bible.Reference, error) {
	if r.Book != "" {
		ref := r.ReferenceFields.reference()
		ref.Raw = r.Reference
		return ref, nil
	}
	return bible.ParseKey(r.Reference)
}

// Handle dispatches req to its handler.
func (c *Coordinator) Handle(ctx context.Context, req Request) (Reply, error) {
	switch r := req.(type) {
	case LookupRequest:
		ref, err := r.reference()
		if err != nil {
			return Reply{}, err
		}
		return Reply{}, c.Resolve(ctx, r.TabID, ref)

	case GetCachedRequest:
		ref, err := bible.ParseKey(r.Reference)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Content: c.GetCached(ref)}, nil

	case PrefetchRequest:
		refs := make([]bible.Reference, len(r.Requests))
		for i, f := range r.Requests {
			refs[i] = f.reference()
		}
		plan, err := c.plan(refs)
		if err != nil {
			c.logger.Warn("prefetch skipped references", "error", err)
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.runPrefetch(context.WithoutCancel(ctx), plan); err != nil {
				c.logger.Warn("prefetch failed", "error", err)
			}
		}()
		return Reply{}, nil

	case TabActivatedRequest:
		c.TabActivated(r.TabID)
		return Reply{}, nil

	case TabClosedRequest:
		c.CloseTab(r.TabID)
		return Reply{}, nil

	default:
		return Reply{}, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}
}

// DecodeRequest decodes the JSON wire form {"type": "...", ...}.
func DecodeRequest(data []byte) (Request, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	var req Request
	var err error
	switch envelope.Type {
	case TypeLookup:
		req, err = decodeAs[LookupRequest](data)
	case TypeGetCached:
		req, err = decodeAs[GetCachedRequest](data)
	case TypePrefetch:
		req, err = decodeAs[PrefetchRequest](data)
	case TypeTabActivated:
		req, err = decodeAs[TabActivatedRequest](data)
	case TypeTabClosed:
		req, err = decodeAs[TabClosedRequest](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, envelope.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s request: %w", envelope.Type, err)
	}
	return req, nil
}

func decodeAs[T Request](data []byte) (Request, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
