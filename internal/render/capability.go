package render

import "machine-dashboard-client/internal/model"

// CanSeeLocation reports whether the session's location scope includes
// location.
func CanSeeLocation(sess model.Session, location string) bool {
	return sess.SeesAllLocations() || sess.LocationScope == location
}

// CanControl reports whether the session may start, pause or stop machines
// in location.
func CanControl(sess model.Session, location string) bool {
	return sess.Role == model.RoleOperator && CanSeeLocation(sess, location)
}

// CanRename reports whether the session may rename machines.
func CanRename(sess model.Session) bool {
	return sess.Role == model.RoleAdmin
}
