package runtime

import (
	"context"
	"testing"

	"folio-chat/domain"
	"folio-chat/domain/event"

	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s Sink) Consume(context.Context, event.Event) error {
	return nil
}

func TestHub_Join_One_User_Two_Devices(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	sink1, sink2 := Sink{"c1"}, Sink{"c2"}

	// Given two connections
	hub.Attach("c1", sink1)
	hub.Attach("c2", sink2)
	req.Equal(domain.Connected, hub.State("c1"))

	// When both join the same user group
	hub.Join("u1", "c1")
	hub.Join("u1", "c2")
	hub.Join("u1", "c2")

	// Then the group holds both sinks once
	req.Equal(domain.Registered, hub.State("c1"))
	req.Len(hub.groups["u1"], 2)
	req.Equal(1, hub.GroupCount())
	got, ok := hub.Sink("c1")
	req.True(ok)
	req.Equal(sink1, got)
}

func TestHub_Detach_Removes_Empty_Group(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	hub.Attach("c1", Sink{"c1"})
	hub.Join("u1", "c1")

	// When the only connection leaves, twice
	req.True(hub.Detach("c1"))
	req.False(hub.Detach("c1"))

	// Then the group no longer exists
	req.NotContains(hub.groups, domain.UserID("u1"))
	req.Zero(hub.GroupCount())
	req.Equal(domain.Disconnected, hub.State("c1"))
	_, ok := hub.Sink("c1")
	req.False(ok)
	req.Empty(hub.Connections())
}

func TestHub_Join_Unknown_Connection_Is_Ignored(t *testing.T) {
	hub := NewHub()
	hub.Join("u1", "ghost")
	require.Zero(t, hub.GroupCount())
}

func TestHub_Rejoin_Under_Another_User_Moves_Group(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	hub.Attach("c1", Sink{"c1"})
	hub.Join("u1", "c1")
	hub.Join("u2", "c1")

	req.NotContains(hub.groups, domain.UserID("u1"))
	req.Len(hub.groups["u2"], 1)
}
