package intake

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/contest-api/internal/types"
)

func TestNormalize(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		n, err := Normalize(CanonicalRecord{})
		require.NoError(t, err)

		sub := n.Submission
		assert.Empty(t, sub.SubmitterName)
		assert.Empty(t, sub.ExplanationCreation)
		assert.Equal(t, types.CreationProcess{}, sub.CreationProcess)
		assert.Empty(t, sub.ContributingAuthors)
		assert.NotNil(t, sub.ContributingAuthors)
		assert.Nil(t, sub.AudioFile)
		assert.Nil(t, sub.AudioFileMeta)
		assert.ErrorIs(t, n.MetaIssue, ErrMetaAbsent)
		assert.Equal(t, types.SubmissionStatusDraft, sub.Status)
		assert.Len(t, sub.UniqueCode, 32)
		assert.Equal(t, "Submission "+sub.UniqueCode, sub.Title)
	})

	t.Run("FixedFields", func(t *testing.T) {
		n, err := Normalize(CanonicalRecord{
			LabelSubmitterName:       strPtr("  Ada   <b>Lovelace</b> "),
			LabelSubmitterEmail:      strPtr("ada@example.org"),
			LabelSubmitterPronouns:   strPtr("they/them"),
			LabelExplanationCreation: strPtr("line one\n  line   two  "),
			LabelAllOriginalSounds:   strPtr("Yes"),
			LabelSourceURLs:          strPtr("https://a.example\nhttps://b.example"),
			LabelAudioFile:           strPtr("https://files.example/a.wav"),
		})
		require.NoError(t, err)

		sub := n.Submission
		assert.Equal(t, "Ada Lovelace", sub.SubmitterName)
		assert.Equal(t, "ada@example.org", sub.SubmitterEmail)
		assert.Equal(t, "they/them", sub.SubmitterPronouns)
		assert.Equal(t, "line one\nline two", sub.ExplanationCreation)
		assert.Equal(t, "Yes", sub.CreationProcess.AllOriginalSounds)
		assert.Equal(t, "https://a.example\nhttps://b.example", sub.CreationProcess.SourceURLs)
		require.NotNil(t, sub.AudioFile)
		assert.Equal(t, "https://files.example/a.wav", *sub.AudioFile)
	})

	t.Run("Contributors", func(t *testing.T) {
		n, err := Normalize(CanonicalRecord{
			"contributor_2": strPtr("Bob"),
			"contributor_3": strPtr(""),
			"contributor_4": strPtr("Amy"),
			"contributor_6": nil,
			"contributor_9": strPtr("Overflow"),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Bob", "Amy"}, n.Submission.ContributingAuthors)
	})

	t.Run("AtMostEightContributors", func(t *testing.T) {
		record := CanonicalRecord{}
		for slot := 1; slot <= 10; slot++ {
			record[contributorLabel(slot)] = strPtr("name")
		}

		n, err := Normalize(record)
		require.NoError(t, err)
		assert.Len(t, n.Submission.ContributingAuthors, ContributorSlots)
	})

	t.Run("UniqueCodesDiffer", func(t *testing.T) {
		a, err := Normalize(CanonicalRecord{})
		require.NoError(t, err)
		b, err := Normalize(CanonicalRecord{})
		require.NoError(t, err)

		assert.NotEqual(t, a.Submission.UniqueCode, b.Submission.UniqueCode)
	})
}

func TestNormalizeAudioMeta(t *testing.T) {
	normalizeMeta := func(t *testing.T, raw string) Normalized {
		t.Helper()
		n, err := Normalize(CanonicalRecord{LabelAudioFileMeta: strPtr(raw)})
		require.NoError(t, err)
		return n
	}

	t.Run("AllFields", func(t *testing.T) {
		n := normalizeMeta(t, `{
			"name": "<i>beep</i>.wav",
			"type": "audio/wav",
			"size": 1024,
			"sampleRate": "44100",
			"numberOfChannels": 2,
			"duration": 2.5,
			"extra": "dropped"
		}`)
		require.NoError(t, n.MetaIssue)
		meta := n.Submission.AudioFileMeta
		require.NotNil(t, meta)

		assert.Equal(t, "beep.wav", *meta.Name)
		assert.Equal(t, "audio/wav", *meta.Type)
		assert.Equal(t, uint64(1024), *meta.Size)
		assert.Equal(t, uint64(44100), *meta.SampleRate)
		assert.Equal(t, uint64(2), *meta.NumberOfChannels)
		assert.InDelta(t, 2.5, *meta.Duration, 0)
	})

	t.Run("AbsentFieldsOmitted", func(t *testing.T) {
		n := normalizeMeta(t, `{"duration": 0.5}`)
		require.NoError(t, n.MetaIssue)
		meta := n.Submission.AudioFileMeta
		require.NotNil(t, meta)

		assert.Nil(t, meta.Name)
		assert.Nil(t, meta.SampleRate)
		require.NotNil(t, meta.Duration)
		assert.InDelta(t, 0.5, *meta.Duration, 0)

		out, err := json.Marshal(meta)
		require.NoError(t, err)
		assert.JSONEq(t, `{"duration": 0.5}`, string(out))
	})

	t.Run("InvalidNumbers", func(t *testing.T) {
		n := normalizeMeta(t, `{"size": -5, "sampleRate": "fast", "duration": "long"}`)
		require.NoError(t, n.MetaIssue)
		meta := n.Submission.AudioFileMeta
		require.NotNil(t, meta)

		assert.Equal(t, uint64(0), *meta.Size)
		assert.Equal(t, uint64(0), *meta.SampleRate)
		assert.InDelta(t, 0.0, *meta.Duration, 0)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, raw := range []string{`{"duration":`, `[1, 2]`, `"text"`, `null`} {
			n := normalizeMeta(t, raw)
			assert.ErrorIs(t, n.MetaIssue, ErrMetaMalformed, raw)
			assert.Nil(t, n.Submission.AudioFileMeta, raw)
		}
	})

	t.Run("EmptyObject", func(t *testing.T) {
		n := normalizeMeta(t, `{}`)
		assert.ErrorIs(t, n.MetaIssue, ErrMetaAbsent)
		assert.Nil(t, n.Submission.AudioFileMeta)
	})

	t.Run("Blank", func(t *testing.T) {
		n := normalizeMeta(t, "  ")
		assert.ErrorIs(t, n.MetaIssue, ErrMetaAbsent)
	})
}
