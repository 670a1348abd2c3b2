package router

import (
	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
)

// bridgeCodeToWire maps a bridgeerr.Code onto its wire ErrorCode. The two
// taxonomies are kept in lockstep by construction (AMBIENT STACK in
// SPEC_FULL.md), so this is a straight rename, not a judgment call.
var bridgeCodeToWire = map[bridgeerr.Code]protocol.ErrorCode{
	bridgeerr.CodeNotFound:      protocol.ErrNotFound,
	bridgeerr.CodeAlreadyExists: protocol.ErrAlreadyExists,
	bridgeerr.CodeOrphanBlocked: protocol.ErrOrphanBlocked,
	bridgeerr.CodeProtected:     protocol.ErrProtected,
	bridgeerr.CodeInvalid:       protocol.ErrInvalid,
	bridgeerr.CodeUnauthorized:  protocol.ErrUnauthorized,
	bridgeerr.CodeUnknownType:   protocol.ErrUnknownType,
	bridgeerr.CodeInternal:      protocol.ErrInternal,
}

// errorFor maps a registry/store error onto a wire error code. Typed
// registry errors (NotFoundError/DuplicateError/OrphanError/ProtectedError)
// get their specific code; a *bridgeerr.BridgeError anywhere in the chain
// (the store's repositories return these) carries its own Code through via
// bridgeCodeToWire; anything else is reported as INTERNAL.
func errorFor(reqID string, err error) *protocol.Message {
	code := protocol.ErrInternal
	details := map[string]any{}

	switch e := err.(type) {
	case *registry.NotFoundError:
		code = protocol.ErrNotFound
	case *registry.DuplicateError:
		code = protocol.ErrAlreadyExists
	case *registry.ProtectedError:
		code = protocol.ErrProtected
	case *registry.OrphanError:
		code = protocol.ErrOrphanBlocked
		details["ref_count"] = e.UsageCount
	default:
		if be, ok := bridgeerr.AsBridgeError(err); ok {
			if wire, known := bridgeCodeToWire[be.Code]; known {
				code = wire
			}
			for k, v := range be.Details {
				details[k] = v
			}
		}
	}

	msg := protocol.Error(reqID, code, err.Error(), details)
	return &msg
}

func invalid(reqID, field, reason string) *protocol.Message {
	msg := protocol.Error(reqID, protocol.ErrInvalid, reason, map[string]any{"field": field})
	return &msg
}

func ok(reqID string, result any) *protocol.Message {
	msg := protocol.OK(reqID, result)
	return &msg
}

func requestID(msg protocol.Message) string {
	id, _ := msg.String("id")
	return id
}

func requireString(msg protocol.Message, key string) (string, bool) {
	v, ok := msg.String(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func requireUUID(msg protocol.Message, key string) (uuid.UUID, bool) {
	s, ok := requireString(msg, key)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func optionalString(msg protocol.Message, key string) string {
	v, _ := msg.String(key)
	return v
}

func optionalAttributes(msg protocol.Message, key string) map[string]any {
	m := msg.Map(key)
	if m == nil {
		return map[string]any{}
	}
	return m
}
