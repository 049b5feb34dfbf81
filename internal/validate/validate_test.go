package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIn(t *testing.T) {
	testCases := []struct {
		name     string
		draft    map[string]any
		expected Errors
	}{
		{
			name:  "valid",
			draft: map[string]any{"caseId": "100", "bedId": 3.0, "checkInDate": "2024-01-01", "scheduledCheckoutDate": "2024-01-05"},
		},
		{
			name:  "missing everything",
			draft: map[string]any{"notes": "walk-in"},
			expected: Errors{
				"caseId":      "a case is required",
				"bedId":       "a bed is required",
				"checkInDate": "check-in date is required",
			},
		},
		{
			name:     "blank case id counts as missing",
			draft:    map[string]any{"caseId": "  ", "bedId": 3.0, "checkInDate": "2024-01-01"},
			expected: Errors{"caseId": "a case is required"},
		},
		{
			name:     "bad date",
			draft:    map[string]any{"caseId": "100", "bedId": 3.0, "checkInDate": "soon"},
			expected: Errors{"checkInDate": "check-in date must be a date"},
		},
		{
			name:     "zero bed",
			draft:    map[string]any{"caseId": "100", "bedId": 0.0, "checkInDate": "2024-01-01"},
			expected: Errors{"bedId": "a bed is required"},
		},
		{
			name:     "scheduled checkout before check-in",
			draft:    map[string]any{"caseId": "100", "bedId": 3.0, "checkInDate": "2024-01-05", "scheduledCheckoutDate": "2024-01-04"},
			expected: Errors{"scheduledCheckoutDate": "scheduled checkout cannot precede check-in"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CheckIn.Check(tc.draft))
		})
	}
}

func TestEditCheckInRequiresID(t *testing.T) {
	errs := EditCheckIn.Check(map[string]any{"caseId": "100", "bedId": 3.0, "checkInDate": "2024-01-01"})
	assert.Equal(t, Errors{"checkInId": "a check-in is required"}, errs)
}

func TestCheckOut(t *testing.T) {
	assert.Nil(t, CheckOut.Check(map[string]any{"checkInId": "abc123", "checkOutDate": "2024-01-05"}))

	errs := CheckOut.Check(map[string]any{"checkOutDate": "01/05/2024"})
	assert.Equal(t, Errors{"checkInId": "a check-in is required"}, errs)
}

func TestCase(t *testing.T) {
	valid := map[string]any{
		"caseId":        "100",
		"firstName":     "Maria",
		"ssn":           "123-45-6789",
		"email":         "maria@example.org",
		"dateOfBirth":   "1980-04-02",
		"phoneNumbers":  []any{map[string]any{"number": "555-111-2222"}},
		"incomeSources": []any{map[string]any{"source": "Job", "amount": 10.0}},
	}
	assert.Nil(t, Case.Check(valid))

	errs := Case.Check(map[string]any{
		"caseId":       "100",
		"ssn":          "12-345",
		"email":        "nope",
		"dateOfBirth":  "2999-01-01",
		"phoneNumbers": []any{map[string]any{"description": "Home"}},
		"expenses":     []any{map[string]any{"type": "Rent", "amount": -5.0}},
	})
	assert.Equal(t, Errors{
		"lastName":     "a first or last name is required",
		"ssn":          "SSN must have 9 digits",
		"email":        "email address is invalid",
		"dateOfBirth":  "date of birth cannot be in the future",
		"phoneNumbers": "every phone number needs a valid number",
		"expenses":     "expense amounts cannot be negative",
	}, errs)
}

func TestValidateStructs(t *testing.T) {
	type site struct {
		Name string `json:"name"`
	}
	err := Site.Validate(site{})
	require.Error(t, err)
	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "site name is required", errs["name"])
	assert.Equal(t, "validation failed: name: site name is required", err.Error())

	assert.NoError(t, Site.Validate(site{Name: "North Shelter"}))
}

func TestBedNeedsNameOrLabel(t *testing.T) {
	assert.NotNil(t, Bed.Check(map[string]any{"room": "12"}))
	assert.Nil(t, Bed.Check(map[string]any{"label": "Room 12-B"}))
	assert.Nil(t, Bed.Check(map[string]any{"bedName": "B"}))
}
