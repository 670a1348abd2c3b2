// Package router dispatches parsed wire messages to handlers. Each
// handler follows the fixed order: in-memory registry mutation first,
// then persistence, then an event appended in the same transaction as
// the write, then (after commit) a broadcast excluding the originator,
// then the ok/error reply.
package router

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forge-bridge/forge-bridge/internal/connections"
	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

// Handler processes one message for one session and returns the
// reply to send back to that session (nil for bye, which has none).
type Handler func(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message

// Router owns the dispatch table and every collaborator a handler needs.
type Router struct {
	Registry *registry.Registry
	Store    *store.Store
	Conns    *connections.Manager
	Log      *logrus.Entry

	table map[protocol.MsgType]Handler
}

// New builds a Router with the full dispatch table wired in.
func New(reg *registry.Registry, st *store.Store, conns *connections.Manager, log *logrus.Entry) *Router {
	r := &Router{Registry: reg, Store: st, Conns: conns, Log: log}
	r.table = map[protocol.MsgType]Handler{
		protocol.MsgPing:        handlePing,
		protocol.MsgBye:         handleBye,
		protocol.MsgSubscribe:   handleSubscribe,
		protocol.MsgUnsubscribe: handleUnsubscribe,

		protocol.MsgProjectCreate: handleProjectCreate,
		protocol.MsgProjectUpdate: handleProjectUpdate,
		protocol.MsgProjectGet:    handleProjectGet,
		protocol.MsgProjectList:   handleProjectList,
		protocol.MsgProjectDelete: handleProjectDelete,

		protocol.MsgEntityCreate: handleEntityCreate,
		protocol.MsgEntityUpdate: handleEntityUpdate,
		protocol.MsgEntityGet:    handleEntityGet,
		protocol.MsgEntityList:   handleEntityList,
		protocol.MsgEntityDelete: handleEntityDelete,

		protocol.MsgRelCreate:  handleRelationshipCreate,
		protocol.MsgRelRemove:  handleRelationshipRemove,
		protocol.MsgLocAdd:     handleLocationAdd,
		protocol.MsgLocRemove:  handleLocationRemove,

		protocol.MsgQueryDependents:   handleQueryDependents,
		protocol.MsgQueryDependencies: handleQueryDependencies,
		protocol.MsgQueryShotStack:    handleQueryShotStack,
		protocol.MsgQueryEvents:       handleQueryEvents,

		protocol.MsgRoleRegister:    handleRoleRegister,
		protocol.MsgRoleRename:      handleRoleRename,
		protocol.MsgRoleRenameLabel: handleRoleRenameLabel,
		protocol.MsgRoleUpdate:      handleRoleUpdate,
		protocol.MsgRoleList:        handleRoleList,
		protocol.MsgRoleDelete:      handleRoleDelete,

		protocol.MsgRelTypeRegister:    handleRelTypeRegister,
		protocol.MsgRelTypeRename:      handleRelTypeRename,
		protocol.MsgRelTypeRenameLabel: handleRelTypeRenameLabel,
		protocol.MsgRelTypeUpdate:      handleRelTypeUpdate,
		protocol.MsgRelTypeList:        handleRelTypeList,
		protocol.MsgRelTypeDelete:      handleRelTypeDelete,
	}
	return r
}

// Dispatch routes one parsed message, logging duration and outcome.
func (r *Router) Dispatch(ctx context.Context, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	start := time.Now()
	handler, ok := r.table[msg.Type()]
	if !ok {
		reqID, _ := msg.String("id")
		reply := protocol.Error(reqID, protocol.ErrUnknownType, "no handler for message type", map[string]any{"type": string(msg.Type())})
		return &reply
	}

	reply := handler(ctx, r, sessionID, msg)

	r.Log.WithFields(logrus.Fields{
		"msg_type":    string(msg.Type()),
		"session_id":  sessionID.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("dispatched")
	return reply
}
