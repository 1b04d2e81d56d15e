package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/internal/types"
)

func entryPath(formID string) string {
	return fmt.Sprintf("/v1/form/%s/entry/", formID)
}

// JSON encoded entry body with the given values, nil values are submitted as null
func entryPayload(values map[string]*string, audio *string) string {
	body := types.EntrySubmission{Entry: values, Audio: audio}
	buf, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(buf)
}

func (s *ServerTestSuite) submitEntry(values map[string]*string, audio *string) (int, map[string]any) {
	return s.call(http.MethodPost, entryPath(formOpen.ID.String()), authFor(authIntake), entryPayload(values, audio))
}

func (s *ServerTestSuite) storedSubmission(body map[string]any) *models.Submission {
	id, err := uuid.Parse(body["submission_id"].(string))
	s.Require().NoError(err)

	sub, err := models.ByID[models.Submission](s.T().Context(), s.tx, id)
	s.Require().NoError(err)
	return sub
}

func (s *ServerTestSuite) eventsFor(id uuid.UUID) []models.ScreeningEvent {
	var events []models.ScreeningEvent
	s.Require().NoError(
		s.tx.Where("submission_id = ?", id).Order("created_at, id").Find(&events).Error,
	)
	return events
}

func (s *ServerTestSuite) Test_SubmitEntry() {
	code, body := s.submitEntry(map[string]*string{
		"1":   strPtr("Ada <b>Lovelace</b>"),
		"2":   strPtr("ada@example.org"),
		"3.1": strPtr("Grace"),
		"3.2": strPtr(""),
		"4":   strPtr(" https://forms.example.org/uploads/logo.wav "),
		"5":   strPtr(`{"name": "logo.wav", "duration": 0.5, "sampleRate": 44100, "numberOfChannels": 2, "extra": "dropped"}`),
		"6":   strPtr("Line one\nLine <i>two</i>"),
		"99":  strPtr("not on the form"),
	}, nil)
	s.Require().Equal(http.StatusOK, code, body)

	s.Equal("draft", body["status"])
	uniqueCode := body["unique_code"].(string)
	s.Len(uniqueCode, 32)

	sub := s.storedSubmission(body)
	s.Equal(uniqueCode, sub.UniqueCode)
	s.Equal("Submission "+uniqueCode, sub.Title)
	s.Equal(types.SubmissionStatusDraft, sub.Status)
	s.Equal(formOpen.ID, sub.FormID)
	s.Equal(formOpen.Version, sub.FormVersion)
	s.Equal(authIntake.ID, sub.CreatedBy)
	s.Equal("Ada Lovelace", sub.SubmitterName)
	s.Equal("ada@example.org", sub.SubmitterEmail)
	s.Equal("", sub.SubmitterCountry)
	s.Equal("Line one\nLine two", sub.ExplanationCreation)
	s.Equal([]string{"Grace"}, sub.ContributingAuthors)
	s.Require().True(sub.AudioFile.Valid)
	s.Equal("https://forms.example.org/uploads/logo.wav", sub.AudioFile.V)

	s.Require().NotNil(sub.AudioFileMeta)
	s.Equal("logo.wav", *sub.AudioFileMeta.Name)
	s.InDelta(0.5, *sub.AudioFileMeta.Duration, 0.0001)
	s.Equal(uint64(44100), *sub.AudioFileMeta.SampleRate)
	s.Nil(sub.AudioFileMeta.Size)

	events := s.eventsFor(sub.ID)
	s.Require().Len(events, 1, "automated screening records one event")
	s.Equal(types.DecisionNone, events[0].Decision)
	s.Equal(automatedAuthor, events[0].Author)
	s.Nil(events[0].AuthID)
	s.Equal([]types.FlagCode{types.FlagSoundTooShort}, []types.FlagCode(events[0].Flags))
	s.Equal(events[0].Body.Data().Flags, []types.FlagCode(events[0].Flags))
}

func (s *ServerTestSuite) Test_SubmitEntryAllFlags() {
	code, body := s.submitEntry(map[string]*string{
		"1": strPtr("Grace"),
		"5": strPtr(`{"duration": 12, "sampleRate": 4000}`),
	}, nil)
	s.Require().Equal(http.StatusOK, code, body)

	sub := s.storedSubmission(body)
	events := s.eventsFor(sub.ID)
	s.Require().Len(events, 1)
	s.Equal(
		[]types.FlagCode{types.FlagSoundTooLong, types.FlagBitrateTooLow},
		[]types.FlagCode(events[0].Flags),
	)
}

func (s *ServerTestSuite) Test_SubmitEntryCleanAudio() {
	code, body := s.submitEntry(map[string]*string{
		"5": strPtr(`{"duration": 2.5, "sampleRate": 48000}`),
	}, nil)
	s.Require().Equal(http.StatusOK, code, body)

	sub := s.storedSubmission(body)
	s.Empty(s.eventsFor(sub.ID), "no flags means no automated event")
}

func (s *ServerTestSuite) Test_SubmitEntryWithoutMeta() {
	tests := []struct {
		name string
		meta *string
	}{
		{name: "Absent"},
		{name: "Null", meta: nil},
		{name: "Malformed", meta: strPtr(`{"duration": `)},
		{name: "NotAnObject", meta: strPtr(`[1, 2]`)},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			values := map[string]*string{"1": strPtr("Grace"), "3.2": strPtr("Ada")}
			if tt.name != "Absent" {
				values["5"] = tt.meta
			}

			code, body := s.submitEntry(values, nil)
			s.Require().Equal(http.StatusOK, code, body)

			sub := s.storedSubmission(body)
			s.Nil(sub.AudioFileMeta)
			s.False(sub.AudioFile.Valid)
			s.Equal([]string{"Ada"}, sub.ContributingAuthors)
			s.Empty(s.eventsFor(sub.ID))
		})
	}
}

func (s *ServerTestSuite) Test_SubmitEntryArchivesAudio() {
	var uploadedKey string
	s.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), int64(64), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.ReadSeeker, _ int64, key, _ string) error {
			uploadedKey = key
			return nil
		}).
		Times(1)

	audio := base64Audio(64)
	code, body := s.submitEntry(map[string]*string{
		"1": strPtr("Grace"),
		"4": strPtr("https://forms.example.org/uploads/replaced.wav"),
	}, &audio)
	s.Require().Equal(http.StatusOK, code, body)

	s.True(strings.HasPrefix(uploadedKey, "audio/"), uploadedKey)

	sub := s.storedSubmission(body)
	s.Require().True(sub.AudioFile.Valid)
	s.Equal(uploadedKey, sub.AudioFile.V, "archived key replaces the form value")
}

func (s *ServerTestSuite) Test_SubmitEntryFetchesRemoteAudio() {
	e := echo.New()
	e.GET("/uploads/logo.wav", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "audio/wav", bytes.Repeat([]byte{7}, 48))
	})
	e.GET("/uploads/huge.wav", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "audio/wav", bytes.Repeat([]byte{7}, 2048))
	})
	platform := httptest.NewServer(e)
	defer platform.Close()

	var uploadedKey string
	s.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), int64(48), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.ReadSeeker, _ int64, key, _ string) error {
			uploadedKey = key
			return nil
		}).
		Times(1)

	s.Run("Archived", func() {
		code, body := s.submitEntry(map[string]*string{
			"1": strPtr("Grace"),
			"4": strPtr(platform.URL + "/uploads/logo.wav"),
		}, nil)
		s.Require().Equal(http.StatusOK, code, body)

		sub := s.storedSubmission(body)
		s.Require().True(sub.AudioFile.Valid)
		s.True(strings.HasPrefix(uploadedKey, "audio/"), uploadedKey)
		s.Equal(uploadedKey, sub.AudioFile.V)
	})

	tests := []struct {
		name string
		url  string
	}{
		{name: "Missing", url: platform.URL + "/uploads/missing.wav"},
		{name: "TooLarge", url: platform.URL + "/uploads/huge.wav"},
		{name: "HostNotAllowed", url: "https://forms.example.org/uploads/logo.wav"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.submitEntry(map[string]*string{
				"1": strPtr("Grace"),
				"4": strPtr(tt.url),
			}, nil)
			s.Require().Equal(http.StatusOK, code, body)

			sub := s.storedSubmission(body)
			s.Require().True(sub.AudioFile.Valid)
			s.Equal(tt.url, sub.AudioFile.V, "url is kept when it cannot be fetched")
		})
	}
}

func (s *ServerTestSuite) Test_SubmitEntryUploadFails() {
	s.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(assert.AnError).
		AnyTimes()

	audio := base64Audio(16)
	code, body := s.submitEntry(map[string]*string{"1": strPtr("Grace")}, &audio)
	s.Equal(http.StatusInternalServerError, code)
	s.Equal("something went wrong", body["message"])

	var count int64
	s.Require().NoError(s.tx.Model(&models.Submission{}).Where("submitter_name = ?", "Grace").Count(&count).Error)
	s.Zero(count, "nothing is stored when the audio cannot be archived")
}

func (s *ServerTestSuite) Test_SubmitEntryInvalid() {
	tests := []struct {
		name         string
		auth         *clientAuth
		formID       string
		payload      string
		expectedCode int
		bodyTester   func(t *testing.T, body map[string]any)
	}{
		{
			name:         "InvalidInactiveForm",
			auth:         authFor(authIntake),
			formID:       formClosed.ID.String(),
			payload:      `{"entry": {"1": "Grace"}}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "this form is not accepting entries", body["message"])
			},
		},
		{
			name:         "InvalidMissingEntry",
			auth:         authFor(authIntake),
			formID:       formOpen.ID.String(),
			payload:      `{"audio": null}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Contains(t, body["fields"], "entry")
			},
		},
		{
			name:         "InvalidAudioBase64",
			auth:         authFor(authIntake),
			formID:       formOpen.ID.String(),
			payload:      `{"entry": {}, "audio": "not base64!"}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Contains(t, body["fields"], "audio")
			},
		},
		{
			name:         "InvalidEntryValueType",
			auth:         authFor(authIntake),
			formID:       formOpen.ID.String(),
			payload:      `{"entry": {"1": 12}}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "failed to parse request data", body["message"])
			},
		},
		{
			name:         "InvalidFormID",
			auth:         authFor(authIntake),
			formID:       "foobar",
			payload:      `{"entry": {}}`,
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidScreener",
			auth:         authFor(authScreener),
			formID:       formOpen.ID.String(),
			payload:      `{"entry": {}}`,
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
		{
			name:         "InvalidInactiveAuth",
			auth:         authFor(authInactive),
			formID:       formOpen.ID.String(),
			payload:      `{"entry": {}}`,
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
		{
			name:         "InvalidNoAuth",
			formID:       formOpen.ID.String(),
			payload:      `{"entry": {}}`,
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.call(http.MethodPost, entryPath(tt.formID), tt.auth, tt.payload)
			s.Equal(tt.expectedCode, code, "incorrect status code")
			tt.bodyTester(s.T(), body)
		})
	}
}
