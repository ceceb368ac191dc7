package services

import "github.com/taskhubhq/taskhub/backend/internal/models"

// taskTransitions is the whitelist of legal status changes. Anything not
// listed, including self-transitions and skips straight to DONE, is invalid.
var taskTransitions = map[string][]string{
	models.TaskStatusTodo:       {models.TaskStatusInProgress},
	models.TaskStatusInProgress: {models.TaskStatusDone},
	models.TaskStatusDone:       {},
}

// IsValidTaskTransition reports whether a task may move from one status to
// another.
func IsValidTaskTransition(from, to string) bool {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
