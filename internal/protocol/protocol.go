// Package protocol defines every message that crosses the socket,
// client→server and server→client. Both sides import from this
// package; if a shape isn't here it doesn't exist on the wire.
package protocol

// MsgType is the literal value carried in a message's "type" field.
type MsgType string

const (
	// Handshake
	MsgHello   MsgType = "hello"
	MsgWelcome MsgType = "welcome"
	MsgPing    MsgType = "ping"
	MsgPong    MsgType = "pong"
	MsgBye     MsgType = "bye"

	// Generic responses
	MsgOK    MsgType = "ok"
	MsgError MsgType = "error"

	// Registry — roles
	MsgRoleRegister    MsgType = "role.register"
	MsgRoleRename      MsgType = "role.rename"
	MsgRoleRenameLabel MsgType = "role.rename_label"
	MsgRoleUpdate      MsgType = "role.update"
	MsgRoleDelete      MsgType = "role.delete"
	MsgRoleList        MsgType = "role.list"

	// Registry — relationship types
	MsgRelTypeRegister    MsgType = "rel_type.register"
	MsgRelTypeRename      MsgType = "rel_type.rename"
	MsgRelTypeRenameLabel MsgType = "rel_type.rename_label"
	MsgRelTypeUpdate      MsgType = "rel_type.update"
	MsgRelTypeDelete      MsgType = "rel_type.delete"
	MsgRelTypeList        MsgType = "rel_type.list"

	// Projects
	MsgProjectCreate MsgType = "project.create"
	MsgProjectUpdate MsgType = "project.update"
	MsgProjectGet    MsgType = "project.get"
	MsgProjectList   MsgType = "project.list"
	MsgProjectDelete MsgType = "project.delete"

	// Entities
	MsgEntityCreate MsgType = "entity.create"
	MsgEntityUpdate MsgType = "entity.update"
	MsgEntityGet    MsgType = "entity.get"
	MsgEntityList   MsgType = "entity.list"
	MsgEntityDelete MsgType = "entity.delete"

	// Graph
	MsgRelCreate MsgType = "relationship.create"
	MsgRelRemove MsgType = "relationship.remove"
	MsgLocAdd    MsgType = "location.add"
	MsgLocRemove MsgType = "location.remove"

	// Queries
	MsgQueryDependents   MsgType = "query.dependents"
	MsgQueryDependencies MsgType = "query.dependencies"
	MsgQueryShotStack    MsgType = "query.shot_stack"
	MsgQueryEvents       MsgType = "query.events"

	// Subscriptions
	MsgSubscribe   MsgType = "subscribe"
	MsgUnsubscribe MsgType = "unsubscribe"

	// Server push
	MsgEvent MsgType = "event"
)

// ErrorCode is the literal value carried in an error message's "code"
// field.
type ErrorCode string

const (
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrOrphanBlocked ErrorCode = "ORPHAN_BLOCKED"
	ErrProtected     ErrorCode = "PROTECTED"
	ErrInvalid       ErrorCode = "INVALID"
	ErrUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrUnknownType   ErrorCode = "UNKNOWN_TYPE"
)
