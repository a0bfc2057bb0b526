package models

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

type AgentKind string

const (
	// AgentKindUUID refers to the structured Agent entity.
	AgentKindUUID AgentKind = "agent"
	// AgentKindLegacy refers to the integer-keyed Personality entity
	// kept from the previous schema revision.
	AgentKindLegacy AgentKind = "personality"
)

// AgentID is a tagged agent identifier. The kind is resolved once when
// the raw string enters the system; data access code switches on Kind
// instead of re-sniffing the shape of the string.
type AgentID struct {
	Kind   AgentKind
	UUID   uuid.UUID
	Legacy uint
}

func ParseAgentID(raw string) (AgentID, error) {
	if raw == "" {
		return AgentID{}, fmt.Errorf("agent id is empty")
	}
	if id, err := uuid.Parse(raw); err == nil {
		return AgentID{Kind: AgentKindUUID, UUID: id}, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return AgentID{}, fmt.Errorf("agent id %q is neither a UUID nor a legacy numeric id", raw)
	}
	return AgentID{Kind: AgentKindLegacy, Legacy: uint(n)}, nil
}

func (a AgentID) String() string {
	if a.Kind == AgentKindLegacy {
		return strconv.FormatUint(uint64(a.Legacy), 10)
	}
	return a.UUID.String()
}
