package types

type ArchivedFile string

const (
	FileAudio      ArchivedFile = "audio"
	FileFormSchema ArchivedFile = "form_schema"
)
