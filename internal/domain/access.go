package domain

// Role identifies which dashboard an access code opens.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleHOD   Role = "HOD"
)

// AccessContext is the scope granted by an access code. Year and Semester
// are only meaningful for RoleAdmin.
type AccessContext struct {
	Role       Role       `json:"role"`
	Department Department `json:"department"`
	Year       int        `json:"year,omitempty"`
	Semester   int        `json:"semester,omitempty"`
}
