package signpackage

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type AgeRequirement struct {
	Role       string `json:"role"`
	MinimumAge int    `json:"minimumAge"`
}

// DefaultAgeRequirements: supervisory roles must be adults; riders and
// owners may be minors (a minor rider needs a guardian role in the package).
var DefaultAgeRequirements = []AgeRequirement{
	{Role: "rider", MinimumAge: 0},
	{Role: "owner", MinimumAge: 0},
	{Role: "trainer", MinimumAge: 18},
	{Role: "coach", MinimumAge: 18},
	{Role: "guardian", MinimumAge: 18},
	{Role: "other", MinimumAge: 0},
}

// AgeAt computes whole years between dob and at, calendar-aware: the year
// difference is reduced by one until the month/day anniversary has passed.
func AgeAt(dob, at time.Time) int {
	age := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}
	return age
}

func minimumAgeFor(role string, requirements []AgeRequirement) int {
	for _, r := range requirements {
		if strings.EqualFold(r.Role, role) {
			return r.MinimumAge
		}
	}
	return 0
}

// ValidateAges checks every assignment against the role age table at the
// event date (today when no event date is given) and returns all violations
// together rather than stopping at the first. A missing birth date for an
// age-gated role is itself a violation. As a side effect, assignments with a
// known birth date and age under 18 get their minor flag set unless the
// caller supplied one.
func ValidateAges(assignments []Assignment, eventDate string, requirements []AgeRequirement, now time.Time) []string {
	target := now
	if eventDate != "" {
		if parsed, err := time.Parse(dateLayout, eventDate); err == nil {
			target = parsed
		}
	}

	var violations []string
	for i := range assignments {
		a := &assignments[i]
		minAge := minimumAgeFor(a.Role, requirements)

		if minAge > 0 {
			if a.DateOfBirth == "" {
				violations = append(violations, fmt.Sprintf(
					"date of birth is required for %s (%s): role requires minimum age of %d",
					a.Name, a.Role, minAge))
				continue
			}
			dob, err := time.Parse(dateLayout, a.DateOfBirth)
			if err != nil {
				violations = append(violations, fmt.Sprintf(
					"invalid date of birth %q for %s (%s)", a.DateOfBirth, a.Name, a.Role))
				continue
			}
			if age := AgeAt(dob, target); age < minAge {
				violations = append(violations, fmt.Sprintf(
					"%s will be %d years old on %s but %s requires minimum age of %d",
					a.Name, age, target.Format(dateLayout), a.Role, minAge))
			}
		}

		if a.DateOfBirth != "" && a.IsMinor == nil {
			if dob, err := time.Parse(dateLayout, a.DateOfBirth); err == nil {
				if AgeAt(dob, target) < 18 {
					minor := true
					a.IsMinor = &minor
				}
			}
		}
	}
	return violations
}
