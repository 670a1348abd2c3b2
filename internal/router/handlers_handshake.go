package router

import (
	"context"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
)

func handlePing(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	reply := protocol.Pong(requestID(msg))
	return &reply
}

// handleBye has no reply; the server closes the socket after routing it.
func handleBye(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	return nil
}

func handleSubscribe(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, valid := requireUUID(msg, "project_id")
	if !valid {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}
	r.Conns.Subscribe(sessionID, projectID)
	return ok(requestID(msg), map[string]any{"project_id": projectID.String()})
}

func handleUnsubscribe(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, valid := requireUUID(msg, "project_id")
	if !valid {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}
	r.Conns.Unsubscribe(sessionID, projectID)
	return ok(requestID(msg), map[string]any{"project_id": projectID.String()})
}
