package services

import "errors"

// ErrNotOwner is returned when a user touches a task owned by someone else.
var ErrNotOwner = errors.New("not the owner of this task")

// authorizeOwner is the whole authorization policy for task resources:
// the acting user id must equal the record's owner id. There is no admin
// override; role checks happen at the route level and never reach here.
func authorizeOwner(userID, ownerID string) error {
	if userID != ownerID {
		return ErrNotOwner
	}
	return nil
}
