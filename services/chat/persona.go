package chat

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
)

var ErrAgentNotFound = errors.New("agent not found")

// Persona is the prompt-facing view of an agent or legacy personality.
type Persona struct {
	ID           models.AgentID
	Name         string
	Tone         string
	Traits       []string
	SystemPrompt string
}

type PersonaResolver interface {
	Persona(ctx context.Context, agent models.AgentID) (*Persona, error)
}

type GormPersonaResolver struct {
	db *gorm.DB
}

func NewGormPersonaResolver(db *gorm.DB) *GormPersonaResolver {
	return &GormPersonaResolver{db: db}
}

func (r *GormPersonaResolver) Persona(ctx context.Context, agent models.AgentID) (*Persona, error) {
	switch agent.Kind {
	case models.AgentKindLegacy:
		var p models.Personality
		err := r.db.WithContext(ctx).First(&p, agent.Legacy).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		if err != nil {
			return nil, err
		}
		return &Persona{
			ID:           agent,
			Name:         p.Name,
			Tone:         p.Tone,
			Traits:       decodeTraits(p.Traits),
			SystemPrompt: p.SystemPrompt,
		}, nil
	default:
		var a models.Agent
		err := r.db.WithContext(ctx).Where("id = ?", agent.UUID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		if err != nil {
			return nil, err
		}
		return &Persona{
			ID:           agent,
			Name:         a.Name,
			Tone:         a.Tone,
			Traits:       decodeTraits(a.Traits),
			SystemPrompt: a.SystemPrompt,
		}, nil
	}
}

func decodeTraits(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var traits []string
	if err := json.Unmarshal(raw, &traits); err != nil {
		return nil
	}
	return traits
}
