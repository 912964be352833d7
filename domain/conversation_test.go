package domain

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConversationID_Is_Commutative(t *testing.T) {
	req := require.New(t)
	ids := []UserID{"64a1", "64b2", "00ff", "zz", "a"}
	for _, a := range ids {
		for _, b := range ids {
			req.Equal(NewConversationID(a, b), NewConversationID(b, a))
		}
	}
	req.Equal(ConversationID("alice_bob"), NewConversationID("bob", "alice"))
}

func TestNewConversationID_Is_Injective_Over_Pairs(t *testing.T) {
	req := require.New(t)
	ids := []UserID{"u1", "u2", "u3", "u4", "u10"}
	seen := make(map[ConversationID]string)
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			pair := fmt.Sprintf("%s|%s", a, b)
			id := NewConversationID(a, b)
			if other, ok := seen[id]; ok {
				req.Failf("collision", "%s and %s both derive %s", pair, other, id)
			}
			seen[id] = pair
		}
	}
	req.Len(seen, 10)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
		want        Page
	}{
		{"defaults", "", "", Page{Number: 1, Limit: 20}},
		{"valid", "3", "10", Page{Number: 3, Limit: 10}},
		{"negative page", "-2", "10", Page{Number: 1, Limit: 10}},
		{"garbage", "abc", "xyz", Page{Number: 1, Limit: 20}},
		{"capped limit", "1", "1000", Page{Number: 1, Limit: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizePage(tt.page, tt.limit, DefaultLimit, MaxLimit))
		})
	}
	require.Equal(t, 20, Page{Number: 3, Limit: 10}.Skip())
}

func TestNormalizePage_Huge_Page_Does_Not_Overflow_Skip(t *testing.T) {
	req := require.New(t)

	page := NormalizePage("9223372036854775807", "20", DefaultLimit, MaxLimit)

	req.Equal(math.MaxInt/20, page.Number)
	req.Positive(page.Skip())
}

func TestNewPagination(t *testing.T) {
	req := require.New(t)

	p := NewPagination(45, Page{Number: 2, Limit: 20})
	req.Equal(Pagination{Total: 45, Page: 2, Pages: 3, Limit: 20, HasNextPage: true, HasPrevPage: true}, p)

	p = NewPagination(0, Page{Number: 1, Limit: 20})
	req.Equal(0, p.Pages)
	req.False(p.HasNextPage)
	req.False(p.HasPrevPage)
}

func TestMessage_Status_Transitions(t *testing.T) {
	req := require.New(t)
	msg := NewMessage("a", "b", "hi", Message{}.CreatedAt)
	req.Equal(StatusUnread, msg.Status)
	req.Equal(ConversationID("a_b"), msg.ConversationID)

	at := msg.CreatedAt.Add(1)
	req.True(msg.MarkRead(at))
	req.False(msg.MarkRead(at))
	req.Equal(StatusRead, msg.Status)
	req.NotNil(msg.ReadAt)

	msg.SoftDelete(at)
	req.True(msg.Deleted)
}
