// Package history pages conversation history out of the workflow backend and
// persists sent and received messages back into it. The backend owns storage;
// this side only tracks how much has been rendered so far.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/etra-web/relay/internal/domain"
)

const (
	// ActionLoadHistory and ActionSaveMessage are the backend's dispatch keys.
	ActionLoadHistory = "load_history"
	ActionSaveMessage = "save_message"

	// DefaultPageSize is the page length for both the initial load and every
	// LoadMore.
	DefaultPageSize = 20
)

// Request is the body POSTed for a history page.
type Request struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Page is the backend's response: one page of messages, oldest first, plus
// whether older messages remain beyond it.
type Page struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
}

// Pager tracks pagination for one user. The offset of the next page is
// always the number of messages rendered so far, so pages never skip or
// overlap as long as loads go through the same Pager.
type Pager struct {
	url    string
	userID string
	client *http.Client

	mu       sync.Mutex
	rendered int
	hasMore  bool
	loaded   bool
}

// NewPager creates a pager against the history webhook. A nil client uses
// http.DefaultClient.
func NewPager(url, userID string, client *http.Client) *Pager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Pager{url: url, userID: userID, client: client}
}

// LoadInitial fetches the first page and resets pagination state. Call it
// once per session before any LoadMore.
func (p *Pager) LoadInitial(ctx context.Context) ([]domain.Message, error) {
	page, err := p.fetch(ctx, 0)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.rendered = len(page.Messages)
	p.hasMore = page.HasMore
	p.loaded = true
	p.mu.Unlock()

	return page.Messages, nil
}

// LoadMore fetches the next page of older messages. Once the backend reports
// the history exhausted, further calls are no-ops until a fresh LoadInitial;
// a failed fetch leaves pagination state untouched so the same page can be
// retried.
func (p *Pager) LoadMore(ctx context.Context) ([]domain.Message, error) {
	p.mu.Lock()
	if !p.loaded || !p.hasMore {
		p.mu.Unlock()
		return nil, nil
	}
	offset := p.rendered
	p.mu.Unlock()

	page, err := p.fetch(ctx, offset)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.rendered += len(page.Messages)
	p.hasMore = page.HasMore
	p.mu.Unlock()

	return page.Messages, nil
}

// HasMore reports whether the backend still holds older messages.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Save persists one message. Persistence is best-effort: a failure is logged
// and returned but never blocks the conversation, and it does not disturb
// pagination state.
func (p *Pager) Save(ctx context.Context, m domain.Message) error {
	payload, err := saveBody(p.userID, m)
	if err != nil {
		return err
	}
	if err := p.post(ctx, payload, nil); err != nil {
		slog.Warn("Failed to save message to history", "messageId", m.ID, "error", err)
		return err
	}
	return nil
}

// saveBody flattens the message fields next to the action and user id, the
// shape the backend's save branch expects.
func saveBody(userID string, m domain.Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["action"] = ActionSaveMessage
	fields["userId"] = userID
	return json.Marshal(fields)
}

func (p *Pager) fetch(ctx context.Context, offset int) (Page, error) {
	body, err := json.Marshal(Request{
		Action: ActionLoadHistory,
		UserID: p.userID,
		Limit:  DefaultPageSize,
		Offset: offset,
	})
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := p.post(ctx, body, &page); err != nil {
		slog.Warn("Failed to load history page", "offset", offset, "error", err)
		return Page{}, err
	}
	return page, nil
}

func (p *Pager) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("history webhook returned status %d", resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
