package validate

import (
	"strings"
	"time"

	"casework-backend/internal/parse"
)

func dateField(draft map[string]any, key string) (time.Time, bool) {
	s, ok := draft[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := parse.Date(s, nil)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func notBefore(later, earlier string) func(map[string]any) bool {
	return func(draft map[string]any) bool {
		end, ok := dateField(draft, later)
		if !ok {
			return true
		}
		start, ok := dateField(draft, earlier)
		if !ok {
			return true
		}
		return !parse.Day(end, nil).Before(parse.Day(start, nil))
	}
}

func eachItem(field string, ok func(item map[string]any) bool) func(map[string]any) bool {
	return func(draft map[string]any) bool {
		items, _ := draft[field].([]any)
		for _, raw := range items {
			item, _ := raw.(map[string]any)
			if item == nil || !ok(item) {
				return false
			}
		}
		return true
	}
}

func nonNegative(key string) func(map[string]any) bool {
	return func(item map[string]any) bool {
		switch v := item[key].(type) {
		case nil:
			return true
		case float64:
			return v >= 0
		}
		return false
	}
}

var checkInFields = map[string][]Rule{
	"caseId":                {{"required", "a case is required"}, {"max=64", "case id is too long"}},
	"bedId":                 {{"required", "a bed is required"}, {"gt=0", "a bed is required"}},
	"checkInDate":           {{"required", "check-in date is required"}, {"isodate", "check-in date must be a date"}},
	"scheduledCheckoutDate": {{"isodate", "scheduled checkout must be a date"}},
	"notes":                 {{"max=2048", "notes are limited to 2048 characters"}},
}

// CheckIn validates a bed check-in request.
var CheckIn = Table{
	Fields: checkInFields,
	Cross: []Cross{
		{Field: "scheduledCheckoutDate", Message: "scheduled checkout cannot precede check-in", Check: notBefore("scheduledCheckoutDate", "checkInDate")},
	},
}

// EditCheckIn validates a correction to an active check-in.
var EditCheckIn = Table{
	Fields: withFields(checkInFields, map[string][]Rule{
		"checkInId": {{"required", "a check-in is required"}, {"max=36", "check-in id is too long"}},
	}),
	Cross: CheckIn.Cross,
}

// CheckOut validates a bed checkout request.
var CheckOut = Table{
	Fields: map[string][]Rule{
		"checkInId":     {{"required", "a check-in is required"}, {"max=36", "check-in id is too long"}},
		"checkOutDate":  {{"required", "checkout date is required"}, {"isodate", "checkout date must be a date"}},
		"checkOutNotes": {{"max=2048", "notes are limited to 2048 characters"}},
	},
}

// Case validates a case record, including one produced by a merge.
var Case = Table{
	Fields: map[string][]Rule{
		"caseId":      {{"required", "case id is required"}, {"max=64", "case id is too long"}},
		"firstName":   {{"max=128", "first name is too long"}},
		"lastName":    {{"max=128", "last name is too long"}},
		"ssn":         {{"ssn", "SSN must have 9 digits"}},
		"email":       {{"email", "email address is invalid"}},
		"dateOfBirth": {{"isodate", "date of birth must be a date"}},
	},
	Cross: []Cross{
		{Field: "lastName", Message: "a first or last name is required", Check: func(d map[string]any) bool {
			first, _ := d["firstName"].(string)
			last, _ := d["lastName"].(string)
			return strings.TrimSpace(first) != "" || strings.TrimSpace(last) != ""
		}},
		{Field: "dateOfBirth", Message: "date of birth cannot be in the future", Check: func(d map[string]any) bool {
			dob, ok := dateField(d, "dateOfBirth")
			return !ok || !dob.After(time.Now())
		}},
		{Field: "phoneNumbers", Message: "every phone number needs a valid number", Check: eachItem("phoneNumbers", func(item map[string]any) bool {
			n, _ := item["number"].(string)
			return phoneRe.MatchString(n)
		})},
		{Field: "incomeSources", Message: "income amounts cannot be negative", Check: eachItem("incomeSources", nonNegative("amount"))},
		{Field: "expenses", Message: "expense amounts cannot be negative", Check: eachItem("expenses", nonNegative("amount"))},
	},
}

// Site validates a new site.
var Site = Table{
	Fields: map[string][]Rule{
		"name": {{"required", "site name is required"}, {"max=128", "site name is too long"}},
	},
}

// Bed validates a new bed; either a bed name or a parseable label is needed.
var Bed = Table{
	Fields: map[string][]Rule{
		"bedName": {{"max=64", "bed name is too long"}},
		"room":    {{"max=64", "room is too long"}},
	},
	Cross: []Cross{
		{Field: "bedName", Message: "a bed name or label is required", Check: func(d map[string]any) bool {
			name, _ := d["bedName"].(string)
			label, _ := d["label"].(string)
			return strings.TrimSpace(name) != "" || strings.TrimSpace(label) != ""
		}},
	},
}

func withFields(base map[string][]Rule, extra map[string][]Rule) map[string][]Rule {
	out := make(map[string][]Rule, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
