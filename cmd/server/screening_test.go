package main

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/wikimedia/contest-api/cmd/server/internal/models"
	"github.com/wikimedia/contest-api/internal/types"
)

const audioURLTTL = time.Hour

func submissionPath(id string, suffix string) string {
	return fmt.Sprintf("/v1/submission/%s/%s", id, suffix)
}

func (s *ServerTestSuite) Test_GetSubmission() {
	s.uploader.EXPECT().
		PresignedReadURL(gomock.Any(), "audio/3f2c", audioURLTTL).
		Return(presignedURL, nil).
		AnyTimes()

	tests := []struct {
		name         string
		auth         *clientAuth
		submissionID string
		expectedCode int
		bodyTester   func(t *testing.T, body map[string]any)
	}{
		{
			name:         "Valid",
			auth:         authFor(authScreener),
			submissionID: submission.ID.String(),
			expectedCode: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, submission.ID.String(), body["submission_id"])
				assert.Equal(t, formOpen.ID.String(), body["form_id"])
				assert.Equal(t, submission.UniqueCode, body["unique_code"])
				assert.Equal(t, "draft", body["status"])
				assert.Equal(t, "Seeded Submitter", body["submitter_name"])
				assert.Equal(t, "audio/3f2c", body["audio_file"])
				assert.Equal(t, presignedURL, body["audio_url"])
				assert.Equal(t, []any{}, body["contributing_authors"])
				assert.InDelta(t, 2.5, body["audio_file_meta"].(map[string]any)["duration"], 0.0001)
			},
		},
		{
			name:         "ValidUpper",
			auth:         authFor(authScreener),
			submissionID: strings.ToUpper(submission.ID.String()),
			expectedCode: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, submission.ID.String(), body["submission_id"])
			},
		},
		{
			name:         "InvalidSubmissionID",
			auth:         authFor(authScreener),
			submissionID: "foobar",
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidMissingSubmission",
			auth:         authFor(authScreener),
			submissionID: formOpen.ID.String(),
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidIntakeOnly",
			auth:         authFor(authIntake),
			submissionID: submission.ID.String(),
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
		{
			name:         "InvalidNoAuth",
			submissionID: submission.ID.String(),
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.call(http.MethodGet, submissionPath(tt.submissionID, ""), tt.auth, "")
			s.Equal(tt.expectedCode, code, "incorrect status code")
			tt.bodyTester(s.T(), body)
		})
	}
}

func (s *ServerTestSuite) Test_GetSubmissionExternalAudio() {
	s.Require().NoError(
		s.tx.Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Update("audio_file", "https://forms.example.org/uploads/logo.wav").Error,
	)

	code, body := s.call(http.MethodGet, submissionPath(submission.ID.String(), ""), authFor(authScreener), "")
	s.Require().Equal(http.StatusOK, code)
	s.Equal("https://forms.example.org/uploads/logo.wav", body["audio_file"])
	s.NotContains(body, "audio_url", "only stored audio is presigned")
}

func (s *ServerTestSuite) Test_GetSubmissionPresignFails() {
	s.uploader.EXPECT().
		PresignedReadURL(gomock.Any(), "audio/3f2c", gomock.Any()).
		Return("", assert.AnError)

	code, body := s.call(http.MethodGet, submissionPath(submission.ID.String(), ""), authFor(authScreener), "")
	s.Require().Equal(http.StatusOK, code, "presigning is best effort")
	s.Equal("audio/3f2c", body["audio_file"])
	s.NotContains(body, "audio_url")
}

func (s *ServerTestSuite) Test_ScreeningLifecycle() {
	id := submission.ID.String()
	screener := authFor(authScreener)

	code, body := s.call(http.MethodGet, submissionPath(id, "screening/"), screener, "")
	s.Require().Equal(http.StatusOK, code)
	s.Equal([]any{}, body["decision"])
	s.Equal([]any{}, body["flags"])

	code, body = s.call(
		http.MethodPost,
		submissionPath(id, "screening/"),
		screener,
		`{"decision": "eligible", "flags": ["bitrate_too_low", "not_a_flag", "bitrate_too_low"]}`,
	)
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal("eligible", body["decision"])
	s.Equal([]any{"bitrate_too_low"}, body["flags"])
	s.Equal("screening tool", body["author"], "author defaults to the key note")
	s.Equal(id, body["submission_id"])
	s.NotEmpty(body["event_id"])

	code, body = s.call(
		http.MethodPost,
		submissionPath(id, "screening/"),
		screener,
		`{"flags": ["sound_too_short"], "author": "Jurist A"}`,
	)
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal("none", body["decision"])
	s.Equal("Jurist A", body["author"])

	code, body = s.call(
		http.MethodPost,
		submissionPath(id, "screening/"),
		screener,
		`{"decision": "ineligible", "flags": ["bitrate_too_low"]}`,
	)
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.call(http.MethodGet, submissionPath(id, "screening/"), screener, "")
	s.Require().Equal(http.StatusOK, code)
	s.Equal([]any{"eligible", "ineligible"}, body["decision"])
	s.Equal([]any{"bitrate_too_low", "sound_too_short"}, body["flags"])

	code, body = s.call(http.MethodGet, submissionPath(id, "screening/events/"), screener, "")
	s.Require().Equal(http.StatusOK, code)

	events := body["events"].([]any)
	s.Require().Len(events, 3)
	decisions := make([]any, len(events))
	for i, e := range events {
		decisions[i] = e.(map[string]any)["decision"]
	}
	s.Equal([]any{"eligible", "none", "ineligible"}, decisions)

	var stored []models.ScreeningEvent
	s.Require().NoError(s.tx.Where("submission_id = ?", submission.ID).Find(&stored).Error)
	for _, e := range stored {
		s.Require().NotNil(e.AuthID)
		s.Equal(authScreener.ID, *e.AuthID)
		s.Equal(e.Decision, e.Body.Data().Status)
	}
}

func (s *ServerTestSuite) Test_ScreeningAfterEntry() {
	code, body := s.submitEntry(map[string]*string{
		"5": strPtr(`{"duration": 0.2, "sampleRate": 4000}`),
	}, nil)
	s.Require().Equal(http.StatusOK, code, body)
	id := body["submission_id"].(string)

	screener := authFor(authScreener)
	code, body = s.call(
		http.MethodPost,
		submissionPath(id, "screening/"),
		screener,
		`{"decision": "ineligible", "flags": ["sound_too_short"]}`,
	)
	s.Require().Equal(http.StatusOK, code, body)

	code, body = s.call(http.MethodGet, submissionPath(id, "screening/"), screener, "")
	s.Require().Equal(http.StatusOK, code)
	s.Equal([]any{"ineligible"}, body["decision"])
	s.Equal([]any{string(types.FlagSoundTooShort), string(types.FlagBitrateTooLow)}, body["flags"])

	code, body = s.call(http.MethodGet, submissionPath(id, "screening/events/"), screener, "")
	s.Require().Equal(http.StatusOK, code)
	events := body["events"].([]any)
	s.Require().Len(events, 2)
	s.Equal(automatedAuthor, events[0].(map[string]any)["author"])
	s.Equal("none", events[0].(map[string]any)["decision"])
}

func (s *ServerTestSuite) Test_RecordScreeningInvalid() {
	tests := []struct {
		name         string
		auth         *clientAuth
		submissionID string
		payload      string
		expectedCode int
		bodyTester   func(t *testing.T, body map[string]any)
	}{
		{
			name:         "InvalidDecision",
			auth:         authFor(authScreener),
			submissionID: submission.ID.String(),
			payload:      `{"decision": "maybe"}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Contains(
					t,
					body["fields"].(map[string]any)["decision"],
					"Failed to validate while checking condition: oneof",
				)
			},
		},
		{
			name:         "InvalidFlagsType",
			auth:         authFor(authScreener),
			submissionID: submission.ID.String(),
			payload:      `{"flags": "sound_too_short"}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "failed to parse request data", body["message"])
			},
		},
		{
			name:         "InvalidMissingSubmission",
			auth:         authFor(authScreener),
			submissionID: formOpen.ID.String(),
			payload:      `{"decision": "eligible"}`,
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidFormManager",
			auth:         authFor(authFormManager),
			submissionID: submission.ID.String(),
			payload:      `{"decision": "eligible"}`,
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.call(
				http.MethodPost,
				submissionPath(tt.submissionID, "screening/"),
				tt.auth,
				tt.payload,
			)
			s.Equal(tt.expectedCode, code, "incorrect status code")
			tt.bodyTester(s.T(), body)
		})
	}

	var count int64
	s.Require().NoError(
		s.tx.Model(&models.ScreeningEvent{}).Where("submission_id = ?", submission.ID).Count(&count).Error,
	)
	s.Zero(count, "rejected requests must not append events")
}
