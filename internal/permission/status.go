package permission

import "fmt"

// Status is the three-valued outcome of a permission check. NotSet is
// distinct from Deny: it means no rule speaks to the query at all, and
// callers must never fold it into Deny when storing or displaying.
type Status int

const (
	NotSet Status = iota
	Allow
	Deny
)

func (s Status) String() string {
	switch s {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "not_set"
	}
}

// MarshalText implements encoding.TextMarshaler so Status serializes as
// "allow" / "deny" / "not_set" in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status string. It accepts the wire spellings
// plus the capitalized effect names used in entry lists.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "allow", "Allow":
		return Allow, nil
	case "deny", "Deny":
		return Deny, nil
	case "not_set", "notSet", "NotSet", "":
		return NotSet, nil
	}
	return NotSet, fmt.Errorf("unknown permission status: %q", s)
}
