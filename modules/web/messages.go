package web

// User-facing texts.
const (
	msgLoggedIn      = "You are logged in"
	msgLoggedOut     = "You are logged out"
	msgLoginRequired = "You are not logged in! Please log in."
	msgBadLogin      = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgInvalidForm   = "The submitted form could not be read."
	msgUnexpected    = "Something went wrong, please try again"

	msgUserRegistered = "User successfully registered"
	msgUserChanged    = "User successfully changed"
	msgUserDeleted    = "User successfully deleted"
	msgUserInUse      = "Cannot delete user because it is in use"
	msgUserForbidden  = "You have no rights to change another user."

	msgStatusCreated = "Status successfully created"
	msgStatusChanged = "Status successfully changed"
	msgStatusDeleted = "Status successfully deleted"
	msgStatusInUse   = "Cannot delete status because it is in use"

	msgLabelCreated = "Label successfully created"
	msgLabelChanged = "Label successfully changed"
	msgLabelDeleted = "Label successfully deleted"
	msgLabelInUse   = "Cannot delete label because it is in use"

	msgTaskCreated   = "Task successfully created"
	msgTaskChanged   = "Task successfully changed"
	msgTaskDeleted   = "Task successfully deleted"
	msgTaskNotAuthor = "A task can only be deleted by its author."
)
