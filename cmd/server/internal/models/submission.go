package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wikimedia/contest-api/internal/intake"
	"github.com/wikimedia/contest-api/internal/types"
)

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
	Model
	AudioFile           datatypes.Null[string]
	CreationProcess     types.CreationProcess `gorm:"type:jsonb;serializer:json"`
	ContributingAuthors []string              `gorm:"type:jsonb;serializer:json"`
	// NULL when the form reported no usable meta
	AudioFileMeta *types.AudioFileMeta `gorm:"type:jsonb;serializer:json"`
	FormVersion   int
	FormID        uuid.UUID
	CreatedBy     uuid.UUID
}

func (Submission) TableName() string {
	return "submission"
}

func (s Submission) GetID() uuid.UUID {
	return s.ID
}

// Builds the row for a normalized submission mapped with the given form
func NewSubmission(sub intake.Submission, form *Form, createdBy uuid.UUID) *Submission {
	contributors := sub.ContributingAuthors
	if contributors == nil {
		contributors = []string{}
	}

	return &Submission{
		FormID:                 form.ID,
		FormVersion:            form.Version,
		CreatedBy:              createdBy,
		UniqueCode:             sub.UniqueCode,
		Title:                  sub.Title,
		Status:                 sub.Status,
		SubmitterName:          sub.SubmitterName,
		SubmitterEmail:         sub.SubmitterEmail,
		SubmitterCountry:       sub.SubmitterCountry,
		SubmitterWikiUser:      sub.SubmitterWikiUser,
		SubmitterPhone:         sub.SubmitterPhone,
		SubmitterPronouns:      sub.SubmitterPronouns,
		ExplanationCreation:    sub.ExplanationCreation,
		ExplanationInspiration: sub.ExplanationInspiration,
		CreationProcess:        sub.CreationProcess,
		ContributingAuthors:    contributors,
		AudioFile:              NewNull(sub.AudioFile),
		AudioFileMeta:          sub.AudioFileMeta,
	}
}

// Payload handed to submission hooks
func (s *Submission) Stored() intake.Stored {
	return intake.Stored{
		ID:     s.ID,
		FormID: s.FormID,
		Submission: intake.Submission{
			UniqueCode:             s.UniqueCode,
			Title:                  s.Title,
			Status:                 s.Status,
			SubmitterName:          s.SubmitterName,
			SubmitterEmail:         s.SubmitterEmail,
			SubmitterCountry:       s.SubmitterCountry,
			SubmitterWikiUser:      s.SubmitterWikiUser,
			SubmitterPhone:         s.SubmitterPhone,
			SubmitterPronouns:      s.SubmitterPronouns,
			ExplanationCreation:    s.ExplanationCreation,
			ExplanationInspiration: s.ExplanationInspiration,
			CreationProcess:        s.CreationProcess,
			ContributingAuthors:    s.ContributingAuthors,
			AudioFile:              PtrFromNull(s.AudioFile),
			AudioFileMeta:          s.AudioFileMeta,
		},
	}
}

func (s *Submission) Response() types.SubmissionResponse {
	resp := types.SubmissionResponse{
		SubmissionID:           s.ID.String(),
		FormID:                 s.FormID.String(),
		FormVersion:            s.FormVersion,
		UniqueCode:             s.UniqueCode,
		Title:                  s.Title,
		Status:                 s.Status,
		SubmitterName:          s.SubmitterName,
		SubmitterEmail:         s.SubmitterEmail,
		SubmitterCountry:       s.SubmitterCountry,
		SubmitterWikiUser:      s.SubmitterWikiUser,
		SubmitterPhone:         s.SubmitterPhone,
		SubmitterPronouns:      s.SubmitterPronouns,
		ExplanationCreation:    s.ExplanationCreation,
		ExplanationInspiration: s.ExplanationInspiration,
		CreationProcess:        s.CreationProcess,
		ContributingAuthors:    s.ContributingAuthors,
		AudioFile:              PtrFromNull(s.AudioFile),
		CreatedAt:              types.NewUnixMilli(s.CreatedAt),
	}
	if resp.ContributingAuthors == nil {
		resp.ContributingAuthors = []string{}
	}
	if s.AudioFileMeta != nil {
		resp.AudioFileMeta = *s.AudioFileMeta
	}

	return resp
}
