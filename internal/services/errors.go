package services

import (
	"fmt"

	"github.com/taskhubhq/taskhub/backend/pkg/response"
)

// The closed set of expected service failures. Handlers pass these to
// response.Error, which maps them to HTTP statuses; nothing downstream
// matches on message text.
var (
	// authentication
	ErrInvalidCredentials    = response.NewUnauthorized("invalid email or password")
	ErrAccountDeactivated    = response.NewForbidden("account is deactivated")
	ErrInvalidRefreshToken   = response.NewForbidden("invalid or expired refresh token")
	ErrUserInactiveOrDeleted = response.NewUnauthorized("user no longer exists or is deactivated")

	// membership invariants
	ErrCannotRemoveLastAdmin   = response.NewBadRequest("Organization must have at least one active admin")
	ErrCannotRemoveLastManager = response.NewBadRequest("Project must have at least one manager")
	ErrCannotChangeOwnRole     = response.NewBadRequest("you cannot change your own role")
	ErrCannotDeactivateSelf    = response.NewBadRequest("you cannot deactivate yourself")
	ErrCannotReactivateSelf    = response.NewBadRequest("you cannot reactivate yourself")

	// invites
	ErrInviteInvalid     = response.NewBadRequest("invalid invite token")
	ErrInviteUsed        = response.NewBadRequest("invite already used")
	ErrInviteExpired     = response.NewBadRequest("invite token expired")
	ErrInviteOutstanding = response.NewConflict("an invite for this email is already outstanding")
	ErrEmailTaken        = response.NewConflict("user with this email already exists")
	ErrInvalidRole       = response.NewBadRequest("invalid role")

	// task workflow
	ErrTaskAlreadyDone       = response.NewBadRequest("Completed tasks cannot be modified")
	ErrNotAssignee           = response.NewForbidden("you can update only your assigned tasks")
	ErrAssigneeNotMember     = response.NewBadRequest("User is not a member of this project")
	ErrInvalidTaskStatus     = response.NewBadRequest("invalid status")
	ErrInvalidTaskPriority   = response.NewBadRequest("priority must be between 1 (urgent) and 5")
	ErrArchivedProject       = response.NewForbidden("Archived projects are read-only")
	ErrProjectMemberNotFound = response.NewNotFound("project member not found")

	// lookups
	ErrUserNotFound    = response.NewNotFound("user not found in this organization")
	ErrProjectNotFound = response.NewNotFound("project not found")
	ErrTaskNotFound    = response.NewNotFound("task not found")
)

// ErrInvalidTransition names the rejected edge so the caller can correct the
// request.
func ErrInvalidTransition(from, to string) *response.AppError {
	return response.NewBadRequest(fmt.Sprintf("Invalid status transition from %s to %s", from, to))
}
