package model

// Role identifies which side of a booking a party is on
type Role string

const (
	RoleStudent   Role = "student"
	RoleCounselor Role = "counselor"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleCounselor
}

// Counterpart returns the opposite role
func (r Role) Counterpart() Role {
	if r == RoleStudent {
		return RoleCounselor
	}
	return RoleStudent
}
