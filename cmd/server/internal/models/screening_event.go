package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

// Append only screening result. The database rejects updates and deletes.
type ScreeningEvent struct {
	CreatedAt    time.Time
	Author       string
	Decision     types.Decision
	Body         datatypes.JSONType[types.ScreeningBody]
	Flags        datatypes.JSONSlice[types.FlagCode]
	ID           uuid.UUID `gorm:"primaryKey;default:uuidv7_sub_ms()"`
	SubmissionID uuid.UUID
	// nil for automated events
	AuthID *uuid.UUID
}

func (ScreeningEvent) TableName() string {
	return "screening_event"
}

func (e ScreeningEvent) GetID() uuid.UUID {
	return e.ID
}

// Builds an event whose body and flags column hold the same flag list
func NewScreeningEvent(
	submissionID uuid.UUID,
	decision types.Decision,
	flags []types.FlagCode,
	author string,
	authID *uuid.UUID,
) *ScreeningEvent {
	if decision == "" {
		decision = types.DecisionNone
	}
	if flags == nil {
		flags = []types.FlagCode{}
	}

	return &ScreeningEvent{
		SubmissionID: submissionID,
		AuthID:       authID,
		Author:       author,
		Decision:     decision,
		Body:         datatypes.NewJSONType(types.ScreeningBody{Status: decision, Flags: flags}),
		Flags:        datatypes.JSONSlice[types.FlagCode](flags),
	}
}

func (e *ScreeningEvent) Event() screening.Event {
	return screening.Event{Decision: e.Decision, Flags: []types.FlagCode(e.Flags)}
}

func (e *ScreeningEvent) Response() types.ScreeningEventResponse {
	flags := []types.FlagCode(e.Flags)
	if flags == nil {
		flags = []types.FlagCode{}
	}

	return types.ScreeningEventResponse{
		EventID:      e.ID.String(),
		SubmissionID: e.SubmissionID.String(),
		Decision:     e.Decision,
		Flags:        flags,
		Author:       e.Author,
		CreatedAt:    types.NewUnixMilli(e.CreatedAt),
	}
}
