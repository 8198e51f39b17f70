package outbound

import "context"

// RoomAuctions is the shared broadcast group every browsing client joins.
// Personal groups are keyed by username.
const RoomAuctions = "auction"

// Event is a broadcast payload tagged with the source it answers.
type Event struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
}

// Broadcaster tracks live sessions per group and fans events out to them.
// Publish is fire-and-forget: delivery failures are logged, never returned,
// so a bid still succeeds even if nobody can be notified.
type Broadcaster interface {
	// JoinGroup registers a session's event channel under a group.
	JoinGroup(ctx context.Context, group, sessionID string, events chan Event) error

	// LeaveGroup removes a session from one group.
	LeaveGroup(ctx context.Context, group, sessionID string) error

	// LeaveAll removes a session from every group it joined. Safe to call
	// for sessions that never joined anything.
	LeaveAll(ctx context.Context, sessionID string)

	// Publish delivers an event to every live session in the group.
	Publish(ctx context.Context, group string, event Event)
}
