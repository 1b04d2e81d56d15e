package types

type SubmissionStatus string

const (
	SubmissionStatusDraft SubmissionStatus = "draft" // Created by intake, awaiting screening
)

// Allow-listed audio metadata reported by the submission form.
//
// Absent fields stay nil, they are never defaulted to zero.
type AudioFileMeta struct {
	Name             *string  `json:"name,omitempty"`
	Type             *string  `json:"type,omitempty"`
	Size             *uint64  `json:"size,omitempty"`
	SampleRate       *uint64  `json:"sampleRate,omitempty"`
	NumberOfChannels *uint64  `json:"numberOfChannels,omitempty"`
	Duration         *float64 `json:"duration,omitempty"`
}

// Reports whether no allow-listed field is present
func (m *AudioFileMeta) Empty() bool {
	return m == nil || (m.Name == nil && m.Type == nil && m.Size == nil &&
		m.SampleRate == nil && m.NumberOfChannels == nil && m.Duration == nil)
}

// Free form answers about how the sound was produced
type CreationProcess struct {
	AllOriginalSounds     string `json:"all_original_sounds"`
	CC0OrPublicDomain     string `json:"cc0_or_public_domain"`
	UsedPrerecordedSounds string `json:"used_prerecorded_sounds"`
	UsedSoundpackLibrary  string `json:"used_soundpack_library"`
	UsedSamples           string `json:"used_samples"`
	SourceURLs            string `json:"source_urls"`
}

type EntrySubmission struct {
	// Submitted values keyed by form field id or sub input key
	Entry RawEntry `json:"entry" validate:"required"`
	// Base64 encoded audio file, replaces the audio_file entry value when set
	//
	// 16MiB max size before Base64 encoding
	Audio *string `json:"audio" validate:"omitempty,base64"`
}

type EntryResponse struct {
	SubmissionID string           `json:"submission_id" validate:"required,uuid_rfc4122" format:"uuid"`
	UniqueCode   string           `json:"unique_code"   validate:"required"`
	Status       SubmissionStatus `json:"status"        validate:"required"`
}

type SubmissionResponse struct {
	SubmissionID           string           `json:"submission_id"`
	FormID                 string           `json:"form_id"`
	FormVersion            int              `json:"form_version"`
	UniqueCode             string           `json:"unique_code"`
	Title                  string           `json:"title"`
	Status                 SubmissionStatus `json:"status"`
	SubmitterName          string           `json:"submitter_name"`
	SubmitterEmail         string           `json:"submitter_email"`
	SubmitterCountry       string           `json:"submitter_country"`
	SubmitterWikiUser      string           `json:"submitter_wiki_user"`
	SubmitterPhone         string           `json:"submitter_phone"`
	SubmitterPronouns      string           `json:"submitter_pronouns"`
	ExplanationCreation    string           `json:"explanation_creation"`
	ExplanationInspiration string           `json:"explanation_inspiration"`
	CreationProcess        CreationProcess  `json:"creation_process"`
	ContributingAuthors    []string         `json:"contributing_authors"`
	AudioFile              *string          `json:"audio_file"`
	// Short lived download link, only set for audio stored by this service
	AudioURL      *string       `json:"audio_url,omitempty"`
	AudioFileMeta AudioFileMeta `json:"audio_file_meta"`
	CreatedAt     UnixMilli     `json:"created_at"`
}

// Published on the notification queue after a submission is stored
type SubmissionCreatedMessage struct {
	SubmissionID string         `json:"submission_id"`
	FormID       string         `json:"form_id"`
	UniqueCode   string         `json:"unique_code"`
	AudioFile    *string        `json:"audio_file"`
	AudioMeta    *AudioFileMeta `json:"audio_file_meta"`
}
