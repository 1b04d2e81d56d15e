package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/types"
)

type Context struct {
	ClientID     *string
	FormID       *string
	SubmissionID *string
}

func dispForDecision(decision types.Decision, flags []types.FlagCode) Disposition {
	switch decision {
	case types.DecisionEligible:
		return DispositionGood
	case types.DecisionIneligible:
		return DispositionBad
	default:
		if len(flags) > 0 {
			return DispositionBad
		}
		return DispositionNeutral
	}
}

func newMessage(c Context, evtType EventType, disposition Disposition) Message {
	return Message{
		ClientID:      c.ClientID,
		FormID:        c.FormID,
		SubmissionID:  c.SubmissionID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		Disposition:   disposition,
		Type:          evtType,
		Timestamp:     types.UnixMilli(time.Now().UTC().UnixMilli()),
	}
}

func LogFileArchived(
	c Context,
	bucketName string,
	objectName string,
	fileArchived types.ArchivedFile,
	fileArchivedEntity FileArchivedEntity,
	entityID string,
) {
	event := FileArchived{}
	event.Message = newMessage(c, EvtFileArchived, DispositionNeutral)

	event.Event.BucketName = bucketName
	event.Event.ObjectName = objectName
	event.Event.FileArchived = fileArchived
	event.Event.Entity = fileArchivedEntity
	event.Event.EntityID = entityID

	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error(
			"could not serialize FileArchived event",
			"bucketName",
			bucketName,
			"objectName",
			objectName,
			"fileArchived",
			fileArchived,
			"entity",
			fileArchivedEntity,
			"entityID",
			entityID,
		)
		return
	}

	fmt.Println(string(evtStr))
}

func LogSubmissionCreated(
	c Context,
	uniqueCode string,
	status types.SubmissionStatus,
	formVersion int,
	contributorCount int,
	hasAudioFile bool,
	hasAudioMeta bool,
) {
	event := SubmissionCreated{}
	event.Message = newMessage(c, EvtSubmissionCreated, DispositionNeutral)

	event.Event.UniqueCode = uniqueCode
	event.Event.Status = status
	event.Event.FormVersion = formVersion
	event.Event.ContributorCount = contributorCount
	event.Event.HasAudioFile = hasAudioFile
	event.Event.HasAudioMeta = hasAudioMeta

	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error(
			"could not serialize SubmissionCreated event",
			"uniqueCode",
			uniqueCode,
			"status",
			status,
		)
		return
	}

	fmt.Println(string(evtStr))
}

func LogScreeningResult(
	c Context,
	eventID string,
	decision types.Decision,
	flags []types.FlagCode,
	author string,
) {
	event := ScreeningResult{}
	event.Message = newMessage(c, EvtScreeningResult, dispForDecision(decision, flags))

	event.Event.EventID = eventID
	event.Event.Decision = decision
	event.Event.Flags = flags
	event.Event.Author = author

	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error(
			"could not serialize ScreeningResult event",
			"eventID",
			eventID,
			"decision",
			decision,
		)
		return
	}

	fmt.Println(string(evtStr))
}

func LogFormUpdated(c Context, title string, version int, active bool, fields int) {
	event := FormUpdated{}
	event.Message = newMessage(c, EvtFormUpdated, DispositionNeutral)

	event.Event.Title = title
	event.Event.Version = version
	event.Event.Active = active
	event.Event.Fields = fields

	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize FormUpdated event", "version", version)
		return
	}

	fmt.Println(string(evtStr))
}
