package signpackage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAgeAt(t *testing.T) {
	// exactly at the birthday
	assert.Equal(t, 18, AgeAt(date("2007-06-01"), date("2025-06-01")))
	// one day before the birthday, same month
	assert.Equal(t, 17, AgeAt(date("2007-06-02"), date("2025-06-01")))
	// birthday month already passed
	assert.Equal(t, 18, AgeAt(date("2007-05-31"), date("2025-06-01")))
	// birthday month not yet reached
	assert.Equal(t, 17, AgeAt(date("2007-07-01"), date("2025-06-01")))
	// year-end rollover in both directions
	assert.Equal(t, 18, AgeAt(date("2007-01-01"), date("2025-12-31")))
	assert.Equal(t, 17, AgeAt(date("2007-12-31"), date("2025-01-01")))
}

func TestValidateAges_CutoffBoundaries(t *testing.T) {
	now := date("2030-01-01")

	// exactly 18 at the event date passes
	violations := ValidateAges([]Assignment{
		{Role: "trainer", Name: "A", DateOfBirth: "2007-06-01"},
	}, "2025-06-01", DefaultAgeRequirements, now)
	assert.Empty(t, violations)

	// one day under fails
	violations = ValidateAges([]Assignment{
		{Role: "trainer", Name: "A", DateOfBirth: "2007-06-02"},
	}, "2025-06-01", DefaultAgeRequirements, now)
	assert.Len(t, violations, 1)
}

func TestValidateAges_MissingBirthDateForGatedRole(t *testing.T) {
	violations := ValidateAges([]Assignment{
		{Role: "guardian", Name: "A"},
	}, "2025-06-01", DefaultAgeRequirements, time.Now())
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "date of birth is required")
}

func TestValidateAges_UngatedRoleNeedsNoBirthDate(t *testing.T) {
	violations := ValidateAges([]Assignment{
		{Role: "rider", Name: "A"},
		{Role: "owner", Name: "B"},
		{Role: "other", Name: "C"},
	}, "", DefaultAgeRequirements, time.Now())
	assert.Empty(t, violations)
}

func TestValidateAges_CollectsAllViolations(t *testing.T) {
	violations := ValidateAges([]Assignment{
		{Role: "trainer", Name: "A", DateOfBirth: "2015-01-01"},
		{Role: "coach", Name: "B"},
		{Role: "guardian", Name: "C", DateOfBirth: "not-a-date"},
	}, "2025-06-01", DefaultAgeRequirements, time.Now())
	assert.Len(t, violations, 3)
}

func TestValidateAges_AutoSetsMinorFlag(t *testing.T) {
	assignments := []Assignment{
		{Role: "rider", Name: "Kid", DateOfBirth: "2015-01-01"},
		{Role: "rider", Name: "Adult", DateOfBirth: "1990-01-01"},
	}
	violations := ValidateAges(assignments, "2025-06-01", DefaultAgeRequirements, time.Now())
	require.Empty(t, violations)

	require.NotNil(t, assignments[0].IsMinor)
	assert.True(t, *assignments[0].IsMinor)
	assert.Nil(t, assignments[1].IsMinor)
}

func TestValidateAges_CallerSuppliedMinorFlagWins(t *testing.T) {
	explicit := false
	assignments := []Assignment{
		{Role: "rider", Name: "Kid", DateOfBirth: "2015-01-01", IsMinor: &explicit},
	}
	ValidateAges(assignments, "2025-06-01", DefaultAgeRequirements, time.Now())
	assert.False(t, *assignments[0].IsMinor)
}

func TestValidateAges_UsesNowWithoutEventDate(t *testing.T) {
	now := date("2025-06-01")
	violations := ValidateAges([]Assignment{
		{Role: "trainer", Name: "A", DateOfBirth: "2007-06-02"},
	}, "", DefaultAgeRequirements, now)
	assert.Len(t, violations, 1)
}
