package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// connectionHandlers keys connection rows by their uuid primary key.
func connectionHandlers() repository.ModelHandlers[*connectionRecord] {
	return repository.ModelHandlers[*connectionRecord]{
		NewRecord:          func() *connectionRecord { return &connectionRecord{} },
		GetID:              (*connectionRecord).uuid,
		SetID:              (*connectionRecord).assignUUID,
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: (*connectionRecord).identifier,
	}
}

func (r *connectionRecord) identifier() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.ID)
}

// uuid returns uuid.Nil for rows whose id is missing or not a uuid.
func (r *connectionRecord) uuid() uuid.UUID {
	id, err := uuid.Parse(r.identifier())
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (r *connectionRecord) assignUUID(id uuid.UUID) {
	if r != nil {
		r.ID = id.String()
	}
}
