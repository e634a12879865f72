// Package auth models users and groups. Who may log in is decided here; what
// a logged-in user may do to a standard is decided by the lifecycle engine,
// except for approving and rejecting, which require membership of the
// approvers group.
package auth

import (
	"errors"
)

// ApproversGroup is the group whose members may approve or reject standards.
const ApproversGroup = "approvers"

type AuthDB struct {
	GroupDB
	UserDB
}

var ErrAuth = errors.New("authentication failed")

var ErrEmptyPassword = errors.New("refusing to set empty password")

// SetPassword shadows AuthDB.UserDB.SetPassword.
func (a *AuthDB) SetPassword(u DBUser, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return a.UserDB.SetPassword(u, password)
}

// IsApprover returns whether the user is a member of the approvers group.
func (a *AuthDB) IsApprover(u DBUser) (bool, error) {
	if u == nil {
		return false, nil
	}
	group, err := a.GroupDB.GetGroupByName(ApproversGroup)
	if err != nil {
		return false, nil // no approvers group, nobody approves
	}
	return group.HasMember(u)
}
