package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// page builds a server page for room, newest first, from the given ids.
func page(room chat.RoomID, ids ...chat.MessageID) []chat.Message {
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		out[i] = chat.Message{ID: id, RoomID: room, SenderID: 1001, Content: "m" + id.String()}
	}
	return out
}

// span returns ids from hi down to lo, the order the server pages in.
func span(hi, lo chat.MessageID) []chat.MessageID {
	var out []chat.MessageID
	for id := hi; id >= lo; id-- {
		out = append(out, id)
	}
	return out
}

func ids(msgs []chat.Message) []chat.MessageID {
	out := make([]chat.MessageID, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestActivate(t *testing.T) {
	m := New(0)
	assert.Equal(t, chat.DefaultPageSize, m.PageSize())

	q, ok := m.Activate(3)
	require.True(t, ok)
	assert.Equal(t, chat.PageQuery{Size: chat.DefaultPageSize}, q)
	assert.True(t, m.Loading())

	require.True(t, m.ApplyPage(m.Ticket(), page(3, 2, 1), false))
	require.Equal(t, 2, m.Len())

	_, ok = m.Activate(0)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.CanLoadMore())
}

func TestApplyPage_ReversesToOldestFirst(t *testing.T) {
	m := New(50)
	m.Activate(1)

	require.True(t, m.ApplyPage(m.Ticket(), page(1, 10, 9), false))
	assert.Equal(t, []chat.MessageID{9, 10}, ids(m.Messages()))
	assert.False(t, m.Loading())
}

func TestLiveAppendAfterInitialPage(t *testing.T) {
	m := New(50)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, 10, 9), false)

	assert.True(t, m.Append(chat.Message{ID: 11, RoomID: 1, Content: "new"}))
	assert.Equal(t, []chat.MessageID{9, 10, 11}, ids(m.Messages()))
}

func TestApplyPage_StaleResponseDiscarded(t *testing.T) {
	m := New(50)
	m.Activate(1)
	first := m.Ticket()
	m.Activate(2)

	assert.False(t, m.ApplyPage(first, page(1, 5, 4), false))
	assert.False(t, m.FailPage(first))
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.Loading(), "request for the active room is still outstanding")

	assert.True(t, m.ApplyPage(m.Ticket(), page(2, 8), false))
	assert.Equal(t, []chat.MessageID{8}, ids(m.Messages()))
}

func TestAppend_DropsOtherRoomsAndDuplicates(t *testing.T) {
	m := New(50)
	assert.False(t, m.Append(chat.Message{ID: 1, RoomID: 1}), "no active room")

	m.Activate(1)
	m.ApplyPage(m.Ticket(), nil, false)

	assert.True(t, m.Append(chat.Message{ID: 1, RoomID: 1}))
	assert.False(t, m.Append(chat.Message{ID: 1, RoomID: 1}))
	assert.False(t, m.Append(chat.Message{ID: 2, RoomID: 2}))
	assert.Equal(t, []chat.MessageID{1}, ids(m.Messages()))
}

func TestDedup_LiveMessagesRacingInitialPage(t *testing.T) {
	m := New(50)
	m.Activate(1)

	// Live messages land before the history response.
	m.Append(chat.Message{ID: 10, RoomID: 1})
	m.Append(chat.Message{ID: 12, RoomID: 1})

	// The page already contains 10 but was read before 12 was sent.
	require.True(t, m.ApplyPage(m.Ticket(), page(1, 11, 10, 9), false))

	assert.Equal(t, []chat.MessageID{9, 10, 11, 12}, ids(m.Messages()))

	assert.False(t, m.Append(chat.Message{ID: 11, RoomID: 1}))
	assert.Len(t, m.Messages(), 4)
}

func TestDedup_OlderPageOverlap(t *testing.T) {
	m := New(3)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, 10, 9, 8), false)

	q, ok := m.LoadMoreQuery()
	require.True(t, ok)
	assert.Equal(t, chat.PageQuery{BeforeID: 8, Size: 3}, q)

	// A server that includes the cursor message still yields unique ids.
	require.True(t, m.ApplyPage(m.Ticket(), page(1, 8, 7, 6), true))
	assert.Equal(t, []chat.MessageID{6, 7, 8, 9, 10}, ids(m.Messages()))
}

func TestPagination_TerminatesOnEmptyPage(t *testing.T) {
	m := New(50)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, span(150, 101)...), false)

	requests := 0
	for m.CanLoadMore() {
		q, ok := m.LoadMoreQuery()
		require.True(t, ok)
		requests++
		require.Less(t, requests, 10, "pagination must terminate")

		var next []chat.MessageID
		if q.BeforeID > 1 {
			next = span(q.BeforeID-1, max(1, q.BeforeID-50))
		}
		m.ApplyPage(m.Ticket(), page(1, next...), true)
	}

	// 100 older messages in pages of 50, then an empty page.
	assert.Equal(t, 3, requests)
	assert.Equal(t, 150, m.Len())
	assert.Equal(t, chat.MessageID(1), m.Messages()[0].ID)
	assert.False(t, m.HasMore())
}

func TestPagination_ShortPageEndsHistory(t *testing.T) {
	m := New(50)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, span(20, 1)...), false)

	assert.False(t, m.HasMore())
	assert.False(t, m.CanLoadMore())
	_, ok := m.LoadMoreQuery()
	assert.False(t, ok)
}

func TestLoadMoreQuery_SuppressedWhileLoading(t *testing.T) {
	m := New(2)
	m.Activate(1)
	assert.False(t, m.CanLoadMore(), "initial page outstanding")

	m.ApplyPage(m.Ticket(), page(1, 4, 3), false)

	_, ok := m.LoadMoreQuery()
	require.True(t, ok)
	_, ok = m.LoadMoreQuery()
	assert.False(t, ok, "one request at a time")

	m.FailPage(m.Ticket())
	_, ok = m.LoadMoreQuery()
	assert.True(t, ok, "retry after failure")
}

func TestNearTop(t *testing.T) {
	assert.True(t, NearTop(0))
	assert.True(t, NearTop(1))
	assert.False(t, NearTop(5))
}

func TestApplyPage_StaleVisitToSameRoomDiscarded(t *testing.T) {
	m := New(50)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, span(150, 101)...), false)

	q, ok := m.LoadMoreQuery()
	require.True(t, ok)
	require.Equal(t, chat.MessageID(101), q.BeforeID)
	firstVisit := m.Ticket()

	// Leave and come back while the older page is still in flight.
	m.Activate(2)
	m.Activate(1)
	assert.Equal(t, chat.RoomID(1), firstVisit.RoomID)

	assert.False(t, m.ApplyPage(firstVisit, page(1, span(100, 51)...), true))
	assert.False(t, m.FailPage(firstVisit))
	assert.True(t, m.Loading(), "first page of the new visit is still outstanding")
	assert.True(t, m.HasMore())
	assert.Equal(t, 0, m.Len())

	_, ok = m.LoadMoreQuery()
	assert.False(t, ok, "no older request before the first page lands")

	require.True(t, m.ApplyPage(m.Ticket(), page(1, span(150, 101)...), false))
	q, ok = m.LoadMoreQuery()
	require.True(t, ok)
	assert.Equal(t, chat.MessageID(101), q.BeforeID)

	require.True(t, m.ApplyPage(m.Ticket(), page(1, span(100, 51)...), true))
	got := ids(m.Messages())
	require.Len(t, got, 100)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1]+1, got[i], "gap in timeline at %d", i)
	}
}

func TestApplyPage_StaleShortPageKeepsHasMore(t *testing.T) {
	m := New(50)
	m.Activate(1)
	m.ApplyPage(m.Ticket(), page(1, span(150, 101)...), false)
	m.LoadMoreQuery()
	stale := m.Ticket()

	m.Activate(1)
	m.ApplyPage(stale, page(1, 3, 2, 1), true)

	assert.True(t, m.HasMore())
}
