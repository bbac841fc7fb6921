package domain

// AuthOutcome is the tag of an Authorization result.
type AuthOutcome int

const (
	Unauthenticated AuthOutcome = iota
	InsufficientRole
	Authorized
)

func (o AuthOutcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case InsufficientRole:
		return "insufficient_role"
	default:
		return "unauthenticated"
	}
}

// Principal is the authenticated-user capability derived for one request.
type Principal struct {
	UserID ID     `json:"id"`
	Name   string `json:"name"`
	Roles  []Role `json:"roles"`
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return HasRole(p.Roles, role)
}

// Authorization is the result of running the guard chain. Principal is set
// for Authorized and InsufficientRole.
type Authorization struct {
	Outcome   AuthOutcome
	Principal Principal
}

// Err maps the outcome to ErrUnauthorized or ErrForbidden, nil when authorized.
func (a Authorization) Err() error {
	switch a.Outcome {
	case Authorized:
		return nil
	case InsufficientRole:
		return ErrForbidden
	default:
		return ErrUnauthorized
	}
}
