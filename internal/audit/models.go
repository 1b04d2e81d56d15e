package audit

import (
	"github.com/wikimedia/contest-api/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type FileArchivedEntity string

const (
	EntitySubmission FileArchivedEntity = "submission"
	EntityForm       FileArchivedEntity = "form"
)

type EventType string

const (
	EvtSubmissionCreated EventType = "submission_created"
	EvtScreeningResult   EventType = "screening_result"
	EvtFileArchived      EventType = "file_archived"
	EvtFormUpdated       EventType = "form_updated"
)

type Message struct {
	ClientID      *string     `json:"client_id"`
	FormID        *string     `json:"form_id"`
	SubmissionID  *string     `json:"submission_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type FileArchivedEvent struct {
	BucketName   string             `json:"bucket_name"   validate:"required"`
	ObjectName   string             `json:"object_name"   validate:"required"`
	FileArchived types.ArchivedFile `json:"file_archived" validate:"required"`
	Entity       FileArchivedEntity `json:"entity"        validate:"required"`
	EntityID     string             `json:"entity_id"     validate:"required"` // id of the submission or form the file belongs to
}

type FileArchived struct {
	Event FileArchivedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionCreatedEvent struct {
	UniqueCode       string                 `json:"unique_code"       validate:"required"`
	Status           types.SubmissionStatus `json:"status"            validate:"required"`
	FormVersion      int                    `json:"form_version"      validate:"required"`
	ContributorCount int                    `json:"contributor_count"`
	HasAudioFile     bool                   `json:"has_audio_file"`
	HasAudioMeta     bool                   `json:"has_audio_meta"`
}

type SubmissionCreated struct {
	Event SubmissionCreatedEvent `json:"event" validate:"required"`
	Message
}

type ScreeningResultEvent struct {
	EventID  string           `json:"event_id" validate:"required"`
	Decision types.Decision   `json:"decision" validate:"required"`
	Flags    []types.FlagCode `json:"flags"`
	Author   string           `json:"author"   validate:"required"`
}

type ScreeningResult struct {
	Event ScreeningResultEvent `json:"event" validate:"required"`
	Message
}

type FormUpdatedEvent struct {
	Title   string `json:"title"   validate:"required"`
	Version int    `json:"version" validate:"required"`
	Active  bool   `json:"active"`
	Fields  int    `json:"fields"`
}

type FormUpdated struct {
	Event FormUpdatedEvent `json:"event" validate:"required"`
	Message
}
