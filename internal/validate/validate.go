// Package validate evaluates rule tables against draft payloads and reports
// one message per offending field.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"casework-backend/internal/parse"
)

var (
	ssnRe   = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)
)

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("ssn", func(fl validator.FieldLevel) bool {
		return ssnRe.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := parse.Date(fl.Field().String(), nil)
		return err == nil
	}))
	return v
}

// Rule is one validator tag and the message shown when it fails.
type Rule struct {
	Tag     string
	Message string
}

// Cross is a rule spanning several fields; Check returns false when violated.
type Cross struct {
	Field   string
	Message string
	Check   func(draft map[string]any) bool
}

// Table maps fields to their rules.
type Table struct {
	Fields map[string][]Rule
	Cross  []Cross
}

// Errors maps field names to the first failing rule's message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Check evaluates the table. Absent values only fail "required" rules.
func (t Table) Check(draft map[string]any) Errors {
	errs := Errors{}
	for field, rules := range t.Fields {
		val, present := draft[field]
		if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
			present = false
		}
		if val == nil {
			present = false
		}
		for _, rule := range rules {
			if !present {
				if rule.Tag == "required" {
					errs[field] = rule.Message
					break
				}
				continue
			}
			if err := engine.Var(val, rule.Tag); err != nil {
				errs[field] = rule.Message
				break
			}
		}
	}
	for _, c := range t.Cross {
		if _, failed := errs[c.Field]; failed {
			continue
		}
		if !c.Check(draft) {
			errs[c.Field] = c.Message
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate runs the table against any JSON-encodable payload and returns nil
// or an Errors value.
func (t Table) Validate(v any) error {
	draft, err := Draft(v)
	if err != nil {
		return err
	}
	if errs := t.Check(draft); errs != nil {
		return errs
	}
	return nil
}

// Draft converts a payload to its JSON object form.
func Draft(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	var draft map[string]any
	if err := json.Unmarshal(b, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return draft, nil
}
