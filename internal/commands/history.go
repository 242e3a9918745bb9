package commands

import (
	"context"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// fetchHistory reads history for a room and returns it oldest first. With
// all set it keeps paging backward until the server returns a short page.
func fetchHistory(ctx context.Context, h chat.History, roomID chat.RoomID, q chat.PageQuery, all bool) ([]chat.Message, error) {
	if q.Size <= 0 {
		q.Size = chat.DefaultPageSize
	}

	var (
		newestFirst []chat.Message
		seen        = make(map[chat.MessageID]struct{})
	)

	for {
		page, err := h.GetMessages(ctx, roomID, q)
		if err != nil {
			return nil, err
		}

		for _, msg := range page {
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			newestFirst = append(newestFirst, msg)
		}

		if !all || len(page) < q.Size {
			break
		}

		oldest := page[len(page)-1].ID
		if q.BeforeID != 0 && oldest >= q.BeforeID {
			// cursor did not move; the server ignored before
			break
		}
		q.BeforeID = oldest
	}

	return chat.Reverse(newestFirst), nil
}
