package domain

import "time"

// TaskKind identifies the handler a task dispatches to. The set is closed:
// anything else is failed at claim time without dispatch.
type TaskKind string

// Built-in task kinds.
const (
	TaskScan             TaskKind = "scan"
	TaskMetadata         TaskKind = "metadata"
	TaskPreview          TaskKind = "preview"
	TaskThumbnail        TaskKind = "thumbnail"
	TaskFilenameMetadata TaskKind = "filename_metadata"
	TaskEmbedding        TaskKind = "embedding"
	TaskTag              TaskKind = "tag"
	TaskTorrentTags      TaskKind = "torrent_tags"
)

// Valid reports whether k is one of the built-in kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskScan, TaskMetadata, TaskPreview, TaskThumbnail,
		TaskFilenameMetadata, TaskEmbedding, TaskTag, TaskTorrentTags:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
// Transitions: pending → processing → {completed | failed}.
// Every transition except pending → processing is terminal; failed tasks
// are never retried automatically.
type TaskStatus string

// Task statuses.
const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is a unit of background work. Producers (scan discovery, metadata
// extraction, user actions) create tasks; only the scheduler mutates
// status. Tasks are never deleted.
type Task struct {
	// ID is a generated unique identifier.
	ID string

	// Kind selects the handler.
	Kind TaskKind

	// Status is the lifecycle state.
	Status TaskStatus

	// Payload is an opaque argument string. Most handlers query the
	// repository for their own working set; id-addressed kinds
	// (preview, thumbnail) carry a video id here, and scan/torrent_tags
	// carry folder arguments.
	Payload string

	// CreatedAt orders the FIFO queue.
	CreatedAt time.Time

	// CompletedAt is set when the task reaches a terminal state.
	CompletedAt *time.Time
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}
