package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wikimedia/contest-api/internal/types"
)

// Canonical labels read by Normalize
const (
	LabelSubmitterName          = "submitter_name"
	LabelSubmitterEmail         = "submitter_email"
	LabelSubmitterCountry       = "submitter_country"
	LabelSubmitterWikiUser      = "submitter_wiki_user"
	LabelSubmitterPhone         = "submitter_phone"
	LabelSubmitterPronouns      = "submitter_pronouns"
	LabelExplanationCreation    = "explanation_creation"
	LabelExplanationInspiration = "explanation_inspiration"
	LabelAllOriginalSounds      = "all_original_sounds"
	LabelCC0OrPublicDomain      = "cc0_or_public_domain"
	LabelUsedPrerecordedSounds  = "used_prerecorded_sounds"
	LabelUsedSoundpackLibrary   = "used_soundpack_library"
	LabelUsedSamples            = "used_samples"
	LabelSourceURLs             = "source_urls"
	LabelAudioFile              = "audio_file"
	LabelAudioFileMeta          = "audio_file_meta"
)

// Number of contributor_N slots on the form
const ContributorSlots = 8

var (
	ErrMetaAbsent    = errors.New("audio file meta absent")
	ErrMetaMalformed = errors.New("audio file meta malformed")
)

// Normalized submission, ready to be stored. Has no id until stored.
type Submission struct {
	UniqueCode             string
	Title                  string
	Status                 types.SubmissionStatus
	SubmitterName          string
	SubmitterEmail         string
	SubmitterCountry       string
	SubmitterWikiUser      string
	SubmitterPhone         string
	SubmitterPronouns      string
	ExplanationCreation    string
	ExplanationInspiration string
	CreationProcess        types.CreationProcess
	ContributingAuthors    []string
	AudioFile              *string
	// nil when the meta was absent or malformed
	AudioFileMeta *types.AudioFileMeta
}

type Normalized struct {
	Submission Submission
	// Set to ErrMetaAbsent or a wrapped ErrMetaMalformed when the submission carries no meta.
	// Not an error, the submission is still valid.
	MetaIssue error
}

// Generates a submission unique code: 32 lowercase hex characters of a random UUID
func NewUniqueCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate unique code: %w", err)
	}

	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// Title of a submission with the given unique code
func Title(uniqueCode string) string {
	return fmt.Sprintf("Submission %s", uniqueCode)
}

// Extracts and sanitizes the expected fields of a canonical record into a draft submission.
//
// Only unique code generation can fail. Problems with the audio meta are reported through
// Normalized.MetaIssue.
func Normalize(record CanonicalRecord) (Normalized, error) {
	code, err := NewUniqueCode()
	if err != nil {
		return Normalized{}, err
	}

	sub := Submission{
		UniqueCode:             code,
		Title:                  Title(code),
		Status:                 types.SubmissionStatusDraft,
		SubmitterName:          SanitizeText(record.stringOr(LabelSubmitterName, "")),
		SubmitterEmail:         SanitizeText(record.stringOr(LabelSubmitterEmail, "")),
		SubmitterCountry:       SanitizeText(record.stringOr(LabelSubmitterCountry, "")),
		SubmitterWikiUser:      SanitizeText(record.stringOr(LabelSubmitterWikiUser, "")),
		SubmitterPhone:         SanitizeText(record.stringOr(LabelSubmitterPhone, "")),
		SubmitterPronouns:      SanitizeText(record.stringOr(LabelSubmitterPronouns, "")),
		ExplanationCreation:    SanitizeTextarea(record.stringOr(LabelExplanationCreation, "")),
		ExplanationInspiration: SanitizeTextarea(record.stringOr(LabelExplanationInspiration, "")),
		CreationProcess: types.CreationProcess{
			AllOriginalSounds:     SanitizeText(record.stringOr(LabelAllOriginalSounds, "")),
			CC0OrPublicDomain:     SanitizeText(record.stringOr(LabelCC0OrPublicDomain, "")),
			UsedPrerecordedSounds: SanitizeText(record.stringOr(LabelUsedPrerecordedSounds, "")),
			UsedSoundpackLibrary:  SanitizeText(record.stringOr(LabelUsedSoundpackLibrary, "")),
			UsedSamples:           SanitizeText(record.stringOr(LabelUsedSamples, "")),
			SourceURLs:            SanitizeTextarea(record.stringOr(LabelSourceURLs, "")),
		},
		ContributingAuthors: contributors(record),
	}

	if v, ok := record.Lookup(LabelAudioFile); ok && strings.TrimSpace(v) != "" {
		file := strings.TrimSpace(v)
		sub.AudioFile = &file
	}

	meta, metaIssue := parseAudioMeta(record)
	sub.AudioFileMeta = meta

	return Normalized{Submission: sub, MetaIssue: metaIssue}, nil
}

func contributorLabel(slot int) string {
	return fmt.Sprintf("contributor_%d", slot)
}

func contributors(record CanonicalRecord) []string {
	authors := []string{}
	for slot := 1; slot <= ContributorSlots; slot++ {
		v, ok := record.Lookup(contributorLabel(slot))
		if !ok {
			continue
		}
		if v = SanitizeText(v); v != "" {
			authors = append(authors, v)
		}
	}

	return authors
}

func parseAudioMeta(record CanonicalRecord) (*types.AudioFileMeta, error) {
	raw, ok := record.Lookup(LabelAudioFileMeta)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ErrMetaAbsent
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetaMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMetaMalformed)
	}

	meta := &types.AudioFileMeta{}
	for key, value := range fields {
		if string(value) == "null" {
			continue
		}
		switch key {
		case "name":
			s := SanitizeTextJSON(value)
			meta.Name = &s
		case "type":
			s := SanitizeTextJSON(value)
			meta.Type = &s
		case "size":
			n := SanitizeUint(value)
			meta.Size = &n
		case "sampleRate":
			n := SanitizeUint(value)
			meta.SampleRate = &n
		case "numberOfChannels":
			n := SanitizeUint(value)
			meta.NumberOfChannels = &n
		case "duration":
			f := SanitizeFloat(value)
			meta.Duration = &f
		}
	}

	if meta.Empty() {
		return nil, ErrMetaAbsent
	}

	return meta, nil
}

// Submission as handed to hooks once it is stored
type Stored struct {
	ID         uuid.UUID
	FormID     uuid.UUID
	Submission Submission
}
