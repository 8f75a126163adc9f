package domain

// CommandRecorder receives the outcome of every command send.
// Implementations must not block for long; they run inside the send lock.
type CommandRecorder interface {
	RecordCommand(rec *CommandRecord) error
}

// MessageArchiver stores host messages once they have been delivered.
type MessageArchiver interface {
	ArchiveMessage(session string, msg Message) error
}
