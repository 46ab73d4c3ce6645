// Package notify carries project and task events over Kafka so the
// notifier worker can fan them out into per-user notification rows
// without the API request waiting on it.
package notify

import "time"

// Topic names, one per event kind.
const (
	TopicUserAdded    = "project.user.added"
	TopicUserRemoved  = "project.user.removed"
	TopicTaskUpdated  = "task.updated"
	TopicCommentAdded = "task.comment.added"
)

// Topics lists every topic the notifier consumes.
var Topics = []string{TopicUserAdded, TopicUserRemoved, TopicTaskUpdated, TopicCommentAdded}

// Event is the JSON payload written to every topic. RecipientIDs names the
// users who should receive a notification row; the producer resolves them
// so the consumer never needs project membership lookups.
type Event struct {
	ProjectID    string    `json:"project_id"`
	ProjectName  string    `json:"project_name"`
	ActorID      string    `json:"actor_id"`
	TaskID       string    `json:"task_id,omitempty"`
	TaskTitle    string    `json:"task_title,omitempty"`
	Message      string    `json:"message"`
	RecipientIDs []string  `json:"recipient_ids"`
	OccurredAt   time.Time `json:"occurred_at"`
}
