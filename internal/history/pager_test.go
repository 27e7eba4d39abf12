package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etra-web/relay/internal/domain"
)

// historyBackend fakes the workflow's history branch: a fixed store sliced by
// limit/offset, plus a record of every request body it saw.
type historyBackend struct {
	mu       sync.Mutex
	store    []domain.Message
	requests []map[string]any
	failNext bool
}

func (b *historyBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		b.mu.Lock()
		b.requests = append(b.requests, body)
		fail := b.failNext
		b.failNext = false
		b.mu.Unlock()

		if fail {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}

		if body["action"] == ActionSaveMessage {
			w.WriteHeader(http.StatusOK)
			return
		}

		limit := int(body["limit"].(float64))
		offset := int(body["offset"].(float64))
		end := offset + limit
		if end > len(b.store) {
			end = len(b.store)
		}
		page := Page{HasMore: end < len(b.store)}
		if offset < end {
			page.Messages = b.store[offset:end]
		}
		json.NewEncoder(w).Encode(page)
	}
}

func (b *historyBackend) request(i int) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[i]
}

func (b *historyBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func newBackend(total int) *historyBackend {
	b := &historyBackend{}
	for i := 0; i < total; i++ {
		b.store = append(b.store, domain.Message{
			ID:      fmt.Sprintf("msg_%d", i),
			Content: fmt.Sprintf("message %d", i),
			Sender:  domain.SenderBot,
		})
	}
	return b
}

func newTestPager(t *testing.T, b *historyBackend) *Pager {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	return NewPager(srv.URL, "user_1", nil)
}

func TestLoadInitialRequestsFirstPage(t *testing.T) {
	backend := newBackend(45)
	pager := newTestPager(t, backend)

	msgs, err := pager.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
	assert.True(t, pager.HasMore())

	req := backend.request(0)
	assert.Equal(t, ActionLoadHistory, req["action"])
	assert.Equal(t, "user_1", req["userId"])
	assert.Equal(t, float64(20), req["limit"])
	assert.Equal(t, float64(0), req["offset"])
}

func TestLoadMoreOffsetsByRenderedCount(t *testing.T) {
	backend := newBackend(45)
	pager := newTestPager(t, backend)

	_, err := pager.LoadInitial(context.Background())
	require.NoError(t, err)

	msgs, err := pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
	assert.Equal(t, float64(20), backend.request(1)["offset"])

	msgs, err = pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
	assert.Equal(t, float64(40), backend.request(2)["offset"])
	assert.False(t, pager.HasMore())
}

func TestLoadMoreStopsWhenExhausted(t *testing.T) {
	backend := newBackend(5)
	pager := newTestPager(t, backend)

	_, err := pager.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.False(t, pager.HasMore())

	// Exhausted history: no further request goes out.
	msgs, err := pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.Equal(t, 1, backend.requestCount())
}

func TestLoadMoreBeforeInitialIsNoop(t *testing.T) {
	backend := newBackend(45)
	pager := newTestPager(t, backend)

	msgs, err := pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msgs)
	assert.Equal(t, 0, backend.requestCount())
}

func TestFailedLoadMoreIsRetryable(t *testing.T) {
	backend := newBackend(45)
	pager := newTestPager(t, backend)

	_, err := pager.LoadInitial(context.Background())
	require.NoError(t, err)

	backend.mu.Lock()
	backend.failNext = true
	backend.mu.Unlock()

	_, err = pager.LoadMore(context.Background())
	require.Error(t, err)
	assert.True(t, pager.HasMore())

	// The retry asks for the same page the failed call wanted.
	msgs, err := pager.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
	assert.Equal(t, float64(20), backend.request(2)["offset"])
}

func TestLoadInitialResetsPagination(t *testing.T) {
	backend := newBackend(45)
	pager := newTestPager(t, backend)

	_, err := pager.LoadInitial(context.Background())
	require.NoError(t, err)
	_, err = pager.LoadMore(context.Background())
	require.NoError(t, err)

	_, err = pager.LoadInitial(context.Background())
	require.NoError(t, err)

	_, err = pager.LoadMore(context.Background())
	require.NoError(t, err)
	last := backend.request(backend.requestCount() - 1)
	assert.Equal(t, float64(20), last["offset"])
}

func TestSaveFlattensMessageFields(t *testing.T) {
	backend := newBackend(0)
	pager := newTestPager(t, backend)

	err := pager.Save(context.Background(), domain.Message{
		ID:      "msg_7",
		Kind:    domain.KindText,
		Content: "remember this",
		Sender:  domain.SenderUser,
	})
	require.NoError(t, err)

	req := backend.request(0)
	assert.Equal(t, ActionSaveMessage, req["action"])
	assert.Equal(t, "user_1", req["userId"])
	assert.Equal(t, "msg_7", req["id"])
	assert.Equal(t, "remember this", req["content"])
}

func TestSaveFailureReturnsError(t *testing.T) {
	backend := newBackend(0)
	backend.failNext = true
	pager := newTestPager(t, backend)

	err := pager.Save(context.Background(), domain.Message{ID: "msg_8"})
	assert.Error(t, err)
}
