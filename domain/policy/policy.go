// Package policy holds the access rules: who may change which record.
package policy

// Actor is the party issuing a request. The zero Actor is anonymous.
type Actor struct {
	ID          uint
	Username    string
	IsSuperuser bool
}

// Anonymous is the actor of a request without valid credentials.
var Anonymous = Actor{}

// Authenticated reports whether the actor signed in.
func (a Actor) Authenticated() bool {
	return a.ID != 0
}

// CanModifyUser reports whether the actor may update or delete the user with targetID.
// Users may change themselves; superusers may change anyone.
func CanModifyUser(a Actor, targetID uint) bool {
	if !a.Authenticated() {
		return false
	}
	return a.ID == targetID || a.IsSuperuser
}

// CanUpdateTask reports whether the actor may edit a task.
// Any signed-in user may edit any task; only deletion is reserved to the author.
func CanUpdateTask(a Actor) bool {
	return a.Authenticated()
}

// CanDeleteTask reports whether the actor may delete a task authored by authorID.
func CanDeleteTask(a Actor, authorID uint) bool {
	return a.Authenticated() && a.ID == authorID
}
