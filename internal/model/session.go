package model

// Role gates which controls a session sees.
type Role string

const (
	RoleNone     Role = ""
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// AllLocations is the location scope that sees every site.
const AllLocations = "all"

// Session is the authenticated identity of the dashboard user.
type Session struct {
	Identity      string `json:"identity"`
	Role          Role   `json:"role"`
	LocationScope string `json:"location"`
}

// SeesAllLocations reports whether the scope is unrestricted.
func (s Session) SeesAllLocations() bool {
	return s.LocationScope == "" || s.LocationScope == AllLocations
}
