package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/wikimedia/contest-api/cmd/server/internal/models"
)

const updatedSchema = `{"fields": [
	{"id": "1", "label": "Name", "admin_label": "submitter_name"},
	{"id": "7", "label": "Wiki username", "admin_label": "submitter_wiki_user"},
	{"id": "8", "label": "Sound", "inputs": [{"key": "8.1", "label": "audio_file"}, {"key": "", "label": "note"}]}
]}`

func formPath(id string) string {
	return fmt.Sprintf("/v1/form/%s/", id)
}

func (s *ServerTestSuite) Test_GetForm() {
	tests := []struct {
		name         string
		auth         *clientAuth
		formID       string
		expectedCode int
		bodyTester   func(t *testing.T, body map[string]any)
	}{
		{
			name:         "Valid",
			auth:         authFor(authFormManager),
			formID:       formOpen.ID.String(),
			expectedCode: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, formOpen.ID.String(), body["form_id"])
				assert.Equal(t, "Sound logo", body["title"])
				assert.InDelta(t, 1, body["version"], 0)
				assert.Equal(t, true, body["active"])

				fields := body["schema"].(map[string]any)["fields"].([]any)
				assert.Len(t, fields, len(entrySchema().Fields))
				assert.Equal(t, "submitter_name", fields[0].(map[string]any)["admin_label"])
			},
		},
		{
			name:         "ValidUpper",
			auth:         authFor(authFormManager),
			formID:       strings.ToUpper(formClosed.ID.String()),
			expectedCode: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, formClosed.ID.String(), body["form_id"])
				assert.Equal(t, false, body["active"])
				assert.InDelta(t, 3, body["version"], 0)
			},
		},
		{
			name:         "InvalidFormID",
			auth:         authFor(authFormManager),
			formID:       "foobar",
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidMissingForm",
			auth:         authFor(authFormManager),
			formID:       submission.ID.String(),
			expectedCode: http.StatusNotFound,
			bodyTester:   notFoundBodyTester,
		},
		{
			name:         "InvalidNotFormManager",
			auth:         authFor(authIntake),
			formID:       formOpen.ID.String(),
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
		{
			name:         "InvalidNoAuth",
			formID:       formOpen.ID.String(),
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.call(http.MethodGet, formPath(tt.formID), tt.auth, "")
			s.Equal(tt.expectedCode, code, "incorrect status code")
			tt.bodyTester(s.T(), body)
		})
	}
}

func (s *ServerTestSuite) Test_UpdateForm() {
	var archivedKey string
	s.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), "application/json").
		DoAndReturn(func(_ context.Context, _ io.ReadSeeker, _ int64, key, _ string) error {
			archivedKey = key
			return nil
		}).
		Times(1)

	payload := fmt.Sprintf(
		`{"title": "Sound logo (round 2)", "version": 1, "active": false, "schema": %s}`,
		updatedSchema,
	)
	code, body := s.call(http.MethodPut, formPath(formOpen.ID.String()), authFor(authFormManager), payload)
	s.Require().Equal(http.StatusOK, code, body)

	s.Equal("Sound logo (round 2)", body["title"])
	s.InDelta(2, body["version"], 0)
	s.Equal(false, body["active"])
	s.True(strings.HasPrefix(archivedKey, "form_schema/"), archivedKey)

	stored, err := models.ByID[models.Form](s.T().Context(), s.tx, formOpen.ID)
	s.Require().NoError(err)
	s.Equal(2, stored.Version)
	s.False(stored.Active)

	fields := stored.Schema.Data().Fields
	s.Require().Len(fields, 3)
	s.Equal("submitter_wiki_user", fields[1].ResolvedLabel())
	s.Equal("8.1", fields[2].Inputs[0].Key)
}

func (s *ServerTestSuite) Test_UpdateFormKeepsActive() {
	s.expectUploads()

	payload := fmt.Sprintf(`{"title": "Sound logo", "version": 1, "schema": %s}`, updatedSchema)
	code, body := s.call(http.MethodPut, formPath(formOpen.ID.String()), authFor(authFormManager), payload)
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal(true, body["active"])
}

func (s *ServerTestSuite) Test_UpdateFormStale() {
	s.expectUploads()

	path := formPath(formOpen.ID.String())
	payload := fmt.Sprintf(`{"title": "First", "version": 1, "schema": %s}`, updatedSchema)

	code, _ := s.call(http.MethodPut, path, authFor(authFormManager), payload)
	s.Require().Equal(http.StatusOK, code)

	payload = fmt.Sprintf(`{"title": "Second", "version": 1, "schema": %s}`, updatedSchema)
	code, body := s.call(http.MethodPut, path, authFor(authFormManager), payload)
	s.Equal(http.StatusConflict, code)
	s.Contains(body["message"], "changed by another request")

	stored, err := models.ByID[models.Form](s.T().Context(), s.tx, formOpen.ID)
	s.Require().NoError(err)
	s.Equal("First", stored.Title)
	s.Equal(2, stored.Version)
}

func (s *ServerTestSuite) Test_UpdateFormInvalid() {
	tests := []struct {
		name         string
		auth         *clientAuth
		payload      string
		expectedCode int
		bodyTester   func(t *testing.T, body map[string]any)
	}{
		{
			name:         "InvalidMissingVersion",
			auth:         authFor(authFormManager),
			payload:      fmt.Sprintf(`{"title": "Sound logo", "schema": %s}`, updatedSchema),
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Contains(
					t,
					body["fields"].(map[string]any)["version"],
					"Failed to validate while checking condition: required",
				)
			},
		},
		{
			name:         "InvalidMissingTitle",
			auth:         authFor(authFormManager),
			payload:      fmt.Sprintf(`{"version": 1, "schema": %s}`, updatedSchema),
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Contains(t, body["fields"], "title")
			},
		},
		{
			name:         "InvalidEmptyFields",
			auth:         authFor(authFormManager),
			payload:      `{"title": "Sound logo", "version": 1, "schema": {"fields": []}}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
				assert.Equal(t, "schema failed to validate", body["message"])
			},
		},
		{
			name:         "InvalidUnknownProperty",
			auth:         authFor(authFormManager),
			payload:      `{"title": "Sound logo", "version": 1, "schema": {"fields": [{"id": "1", "label": "x", "type": "text"}]}}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
			},
		},
		{
			name:         "InvalidBadKey",
			auth:         authFor(authFormManager),
			payload:      `{"title": "Sound logo", "version": 1, "schema": {"fields": [{"id": "1 2", "label": "x"}]}}`,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assertErrorBodyWithFields(t, body)
			},
		},
		{
			name:         "InvalidJSON",
			auth:         authFor(authFormManager),
			payload:      `{"title": `,
			expectedCode: http.StatusBadRequest,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "failed to parse request data", body["message"])
			},
		},
		{
			name:         "InvalidScreener",
			auth:         authFor(authScreener),
			payload:      fmt.Sprintf(`{"title": "Sound logo", "version": 1, "schema": %s}`, updatedSchema),
			expectedCode: http.StatusUnauthorized,
			bodyTester:   unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, body := s.call(http.MethodPut, formPath(formOpen.ID.String()), tt.auth, tt.payload)
			s.Equal(tt.expectedCode, code, "incorrect status code")
			tt.bodyTester(s.T(), body)
		})
	}

	stored, err := models.ByID[models.Form](s.T().Context(), s.tx, formOpen.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.Version, "rejected updates must not bump the version")
}
