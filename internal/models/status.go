package models

// MessageType is the classification assigned by the intent classifier.
type MessageType string

const (
	TypeMeeting      MessageType = "meeting"
	TypeTranscript   MessageType = "transcript"
	TypeInstructions MessageType = "instructions"
	TypeGreeting     MessageType = "greeting"
)

// MessageTypes lists the recognized classification labels.
var MessageTypes = []MessageType{TypeMeeting, TypeTranscript, TypeInstructions, TypeGreeting}

// NeedsTasks reports whether messages of this type go through the task
// extraction pipeline.
func (t MessageType) NeedsTasks() bool {
	return t == TypeTranscript || t == TypeInstructions
}

// MessageStatus is the message lifecycle state.
//
//	pending    — persisted by a poller, not yet classified
//	processed  — classified; for task-bearing messages also "reply ready"
//	             once the synthesizer has written Reply
//	claiming   — transient, held by one synthesizer worker
//	handling   — transient, held by one dispatcher worker
//	successful — reply delivered, terminal
//	failed     — terminal
type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusProcessed  MessageStatus = "processed"
	StatusClaiming   MessageStatus = "claiming"
	StatusHandling   MessageStatus = "handling"
	StatusSuccessful MessageStatus = "successful"
	StatusFailed     MessageStatus = "failed"
)

// messageTransitions is the allowed transition table. Claims and their
// reverts are the only edges out of the transient states.
var messageTransitions = map[MessageStatus][]MessageStatus{
	StatusPending:   {StatusProcessed, StatusFailed},
	StatusProcessed: {StatusClaiming, StatusHandling, StatusFailed},
	StatusClaiming:  {StatusProcessed},
	StatusHandling:  {StatusProcessed, StatusSuccessful},
}

// CanTransition reports whether from→to is a legal message status change.
// Terminal states have no outgoing edges.
func (from MessageStatus) CanTransition(to MessageStatus) bool {
	for _, next := range messageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is final for the pipeline.
func (s MessageStatus) Terminal() bool {
	return s == StatusSuccessful || s == StatusFailed
}

// TaskStatus is the task lifecycle state.
//
//	pending    — awaiting execution (or re-execution after an ambiguous
//	             verifier verdict)
//	processed  — executed, result classified as success
//	failed     — executed, result classified as error; still reply-bearing
//	successful — folded into the owning message's reply
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessed  TaskStatus = "processed"
	TaskFailed     TaskStatus = "failed"
	TaskSuccessful TaskStatus = "successful"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:   {TaskProcessed, TaskFailed},
	TaskProcessed: {TaskSuccessful},
	TaskFailed:    {TaskSuccessful},
}

// CanTransition reports whether from→to is a legal task status change.
func (from TaskStatus) CanTransition(to TaskStatus) bool {
	for _, next := range taskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the task carries its final executor outcome.
// A terminal task always has a non-empty reply.
func (s TaskStatus) Terminal() bool {
	return s == TaskProcessed || s == TaskFailed || s == TaskSuccessful
}
