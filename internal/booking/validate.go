package booking

import (
	"strings"
)

// Validator checks student identity before any ledger access.
type Validator struct {
	Domains  []string
	IDPrefix string
}

// DefaultValidator accepts institutional addresses and 900-prefixed student ids.
func DefaultValidator() Validator {
	return Validator{Domains: []string{"my.cuesta.edu", "cuesta.edu"}, IDPrefix: "900"}
}

// Validate rejects blank fields, foreign email domains and malformed student ids.
func (v Validator) Validate(name, email, studentID string) error {
	name, email, studentID = strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(studentID)
	if name == "" || email == "" || studentID == "" {
		return invalid("name, email and student id are required")
	}
	if len(v.Domains) > 0 {
		lower := strings.ToLower(email)
		ok := false
		for _, d := range v.Domains {
			if strings.HasSuffix(lower, "@"+strings.ToLower(strings.TrimPrefix(d, "@"))) {
				ok = true
				break
			}
		}
		if !ok {
			return invalid("please use your official email ending in @" + strings.Join(v.Domains, " or @"))
		}
	}
	if v.IDPrefix != "" && !strings.HasPrefix(studentID, v.IDPrefix) {
		return invalid("student id must start with " + v.IDPrefix)
	}
	return nil
}
