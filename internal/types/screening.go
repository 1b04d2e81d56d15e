package types

type Decision string

const (
	DecisionEligible   Decision = "eligible"
	DecisionIneligible Decision = "ineligible"
	DecisionNone       Decision = "none" // event only carries flags
)

// Reports whether the decision counts as a vote in the aggregate
func (d Decision) IsVote() bool {
	return d == DecisionEligible || d == DecisionIneligible
}

type FlagCode string

func (f FlagCode) String() string {
	return string(f)
}

const (
	FlagSoundTooShort FlagCode = "sound_too_short"
	FlagSoundTooLong  FlagCode = "sound_too_long"
	FlagBitrateTooLow FlagCode = "bitrate_too_low"
)

// Persisted body of a screening event
type ScreeningBody struct {
	Status Decision   `json:"status"`
	Flags  []FlagCode `json:"flags"`
}

// Current screening state, recomputed from the full event history
type ScreeningAggregate struct {
	Decisions []Decision `json:"decision"`
	Flags     []FlagCode `json:"flags"`
}

type ScreeningSubmission struct {
	Decision Decision `json:"decision" validate:"omitempty,oneof=eligible ineligible none"`
	// Unknown codes are dropped
	Flags []string `json:"flags"`
	// Screener name recorded as the event author, defaults to the API key note
	Author string `json:"author"`
}

type ScreeningEventResponse struct {
	EventID      string     `json:"event_id"      validate:"required,uuid_rfc4122" format:"uuid"`
	SubmissionID string     `json:"submission_id" validate:"required,uuid_rfc4122" format:"uuid"`
	Decision     Decision   `json:"decision"`
	Flags        []FlagCode `json:"flags"`
	Author       string     `json:"author"`
	CreatedAt    UnixMilli  `json:"created_at"`
}

type ScreeningEventsResponse struct {
	Events []ScreeningEventResponse `json:"events"`
}

type FlagResponse struct {
	Code  FlagCode `json:"code"`
	Label string   `json:"label"`
}

type FlagsResponse struct {
	Flags []FlagResponse `json:"flags"`
}
