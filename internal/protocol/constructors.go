package protocol

// ─────────────────────────────────────────────────────────────
// Constructors — client → server messages
// ─────────────────────────────────────────────────────────────

// Hello is the first message a client sends after connecting.
// lastEventID, if the client is reconnecting, asks the server to
// replay events strictly after that cursor.
func Hello(clientName, endpointType string, capabilities map[string]any, lastEventID string) Message {
	if capabilities == nil {
		capabilities = map[string]any{}
	}
	var lastID any
	if lastEventID != "" {
		lastID = lastEventID
	}
	return Message{
		"type":          string(MsgHello),
		"id":            newID(),
		"client_name":   clientName,
		"endpoint_type": endpointType,
		"capabilities":  capabilities,
		"last_event_id": lastID,
	}
}

func Ping(msgID string) Message {
	if msgID == "" {
		msgID = newID()
	}
	return Message{"type": string(MsgPing), "id": msgID}
}

func Bye(reason string) Message {
	if reason == "" {
		reason = "client_shutdown"
	}
	return Message{"type": string(MsgBye), "reason": reason}
}

func Subscribe(projectID string) Message {
	return Message{"type": string(MsgSubscribe), "id": newID(), "project_id": projectID}
}

func Unsubscribe(projectID string) Message {
	return Message{"type": string(MsgUnsubscribe), "id": newID(), "project_id": projectID}
}

// Project messages

func ProjectCreate(name, code string, metadata map[string]any) Message {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Message{"type": string(MsgProjectCreate), "id": newID(), "name": name, "code": code, "metadata": metadata}
}

func ProjectUpdate(projectID string, fields map[string]any) Message {
	return Message{"type": string(MsgProjectUpdate), "id": newID(), "project_id": projectID, "fields": fields}
}

func ProjectGet(projectID string) Message {
	return Message{"type": string(MsgProjectGet), "id": newID(), "project_id": projectID}
}

func ProjectList() Message {
	return Message{"type": string(MsgProjectList), "id": newID()}
}

func ProjectDelete(projectID string) Message {
	return Message{"type": string(MsgProjectDelete), "id": newID(), "project_id": projectID}
}

// Entity messages

func EntityCreate(entityType, projectID string, attributes map[string]any, name, status string) Message {
	return Message{
		"type":        string(MsgEntityCreate),
		"id":          newID(),
		"entity_type": entityType,
		"project_id":  projectID,
		"name":        orNil(name),
		"status":      orNil(status),
		"attributes":  attributes,
	}
}

func EntityUpdate(entityID string, attributes map[string]any, name, status string) Message {
	return Message{
		"type":       string(MsgEntityUpdate),
		"id":         newID(),
		"entity_id":  entityID,
		"name":       orNil(name),
		"status":     orNil(status),
		"attributes": attributes,
	}
}

func EntityGet(entityID string) Message {
	return Message{"type": string(MsgEntityGet), "id": newID(), "entity_id": entityID}
}

func EntityList(entityType, projectID string) Message {
	return Message{"type": string(MsgEntityList), "id": newID(), "entity_type": entityType, "project_id": projectID}
}

func EntityDelete(entityID string) Message {
	return Message{"type": string(MsgEntityDelete), "id": newID(), "entity_id": entityID}
}

// Graph messages

func RelationshipCreate(sourceID, targetID, relType string, attributes map[string]any) Message {
	msg := Message{
		"type":      string(MsgRelCreate),
		"id":        newID(),
		"source_id": sourceID,
		"target_id": targetID,
		"rel_type":  relType,
	}
	if len(attributes) > 0 {
		msg["attributes"] = attributes
	}
	return msg
}

func RelationshipRemove(sourceID, targetID, relType string) Message {
	return Message{
		"type":      string(MsgRelRemove),
		"id":        newID(),
		"source_id": sourceID,
		"target_id": targetID,
		"rel_type":  relType,
	}
}

func LocationAdd(entityID, path, storageType string, priority int) Message {
	if storageType == "" {
		storageType = "local"
	}
	return Message{
		"type":         string(MsgLocAdd),
		"id":           newID(),
		"entity_id":    entityID,
		"path":         path,
		"storage_type": storageType,
		"priority":     priority,
	}
}

func LocationRemove(entityID, path string) Message {
	return Message{"type": string(MsgLocRemove), "id": newID(), "entity_id": entityID, "path": path}
}

// Query messages

func QueryDependents(entityID string) Message {
	return Message{"type": string(MsgQueryDependents), "id": newID(), "entity_id": entityID}
}

func QueryDependencies(entityID string) Message {
	return Message{"type": string(MsgQueryDependencies), "id": newID(), "entity_id": entityID}
}

func QueryShotStack(shotID string) Message {
	return Message{"type": string(MsgQueryShotStack), "id": newID(), "shot_id": shotID}
}

func QueryEvents(projectID, entityID string, limit int) Message {
	if limit <= 0 {
		limit = 50
	}
	return Message{
		"type":       string(MsgQueryEvents),
		"id":         newID(),
		"project_id": orNil(projectID),
		"entity_id":  orNil(entityID),
		"limit":      limit,
	}
}

// Registry messages — roles

func RoleRegister(name, label string, order int, pathTemplate string, aliases map[string]string) Message {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return Message{
		"type":          string(MsgRoleRegister),
		"id":            newID(),
		"name":          name,
		"label":         orNil(label),
		"order":         order,
		"path_template": orNil(pathTemplate),
		"aliases":       aliases,
	}
}

func RoleRename(oldName, newName string) Message {
	return Message{"type": string(MsgRoleRename), "id": newID(), "old_name": oldName, "new_name": newName}
}

func RoleRenameLabel(name, newLabel string) Message {
	return Message{"type": string(MsgRoleRenameLabel), "id": newID(), "name": name, "new_label": newLabel}
}

func RoleUpdate(name string, fields map[string]any) Message {
	return Message{"type": string(MsgRoleUpdate), "id": newID(), "name": name, "fields": fields}
}

func RoleList() Message {
	return Message{"type": string(MsgRoleList), "id": newID()}
}

func RoleDelete(name, migrateTo string) Message {
	return Message{"type": string(MsgRoleDelete), "id": newID(), "name": name, "migrate_to": orNil(migrateTo)}
}

// Registry messages — relationship types

func RelTypeRegister(name, label, description, directionality string) Message {
	return Message{
		"type":           string(MsgRelTypeRegister),
		"id":             newID(),
		"name":           name,
		"label":          orNil(label),
		"description":    orNil(description),
		"directionality": orNil(directionality),
	}
}

func RelTypeRename(oldName, newName string) Message {
	return Message{"type": string(MsgRelTypeRename), "id": newID(), "old_name": oldName, "new_name": newName}
}

func RelTypeRenameLabel(name, newLabel string) Message {
	return Message{"type": string(MsgRelTypeRenameLabel), "id": newID(), "name": name, "new_label": newLabel}
}

func RelTypeUpdate(name string, fields map[string]any) Message {
	return Message{"type": string(MsgRelTypeUpdate), "id": newID(), "name": name, "fields": fields}
}

func RelTypeList() Message {
	return Message{"type": string(MsgRelTypeList), "id": newID()}
}

func RelTypeDelete(name, migrateTo string) Message {
	return Message{"type": string(MsgRelTypeDelete), "id": newID(), "name": name, "migrate_to": orNil(migrateTo)}
}

// ─────────────────────────────────────────────────────────────
// Constructors — server → client messages
// ─────────────────────────────────────────────────────────────

func OK(requestID string, result any) Message {
	msg := Message{"type": string(MsgOK), "id": requestID}
	if result != nil {
		msg["result"] = result
	}
	return msg
}

func Error(requestID string, code ErrorCode, message string, details map[string]any) Message {
	msg := Message{
		"type":    string(MsgError),
		"id":      orNil(requestID),
		"code":    string(code),
		"message": message,
	}
	if len(details) > 0 {
		msg["details"] = details
	}
	return msg
}

func Welcome(sessionID, requestID, serverVersion string, registrySummary any) Message {
	if serverVersion == "" {
		serverVersion = "0.1.0"
	}
	if registrySummary == nil {
		registrySummary = map[string]any{}
	}
	return Message{
		"type":             string(MsgWelcome),
		"id":               requestID,
		"session_id":       sessionID,
		"server_version":   serverVersion,
		"registry_summary": registrySummary,
	}
}

func Pong(requestID string) Message {
	return Message{"type": string(MsgPong), "id": requestID}
}

// Event is the server-push notification for a committed mutation.
func Event(eventType string, payload map[string]any, projectID, entityID string, eventID int64) Message {
	return Message{
		"type":       string(MsgEvent),
		"event_id":   eventID,
		"event_type": eventType,
		"project_id": orNil(projectID),
		"entity_id":  orNil(entityID),
		"payload":    payload,
	}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
