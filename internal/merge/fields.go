package merge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the JSON form of a case as seen by the reconciler.
type Record map[string]any

// Kind tells the reconciler how a declared field is compared.
type Kind int

const (
	Scalar Kind = iota
	Array
	Object
)

var kindNames = map[Kind]string{Scalar: "scalar", Array: "array", Object: "object"}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", string(b))
}

// Field declares one participant in a merge.
type Field struct {
	Name      string
	Kind      Kind
	Subfields []string
}

var addressSubfields = []string{"street", "city", "state", "zip"}

// CaseFields is the merge declaration for case records.
var CaseFields = []Field{
	{Name: "firstName", Kind: Scalar},
	{Name: "middleName", Kind: Scalar},
	{Name: "lastName", Kind: Scalar},
	{Name: "suffix", Kind: Scalar},
	{Name: "ssn", Kind: Scalar},
	{Name: "dateOfBirth", Kind: Scalar},
	{Name: "gender", Kind: Scalar},
	{Name: "email", Kind: Scalar},
	{Name: "veteranStatus", Kind: Scalar},
	{Name: "phoneNumbers", Kind: Array},
	{Name: "incomeSources", Kind: Array},
	{Name: "expenses", Kind: Array},
	{Name: "benefits", Kind: Array},
	{Name: "streetAddress", Kind: Object, Subfields: addressSubfields},
	{Name: "mailingAddress", Kind: Object, Subfields: addressSubfields},
}

// ToRecord converts any JSON-encodable value into a Record.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// FromRecord decodes rec into out, which must be a pointer.
func FromRecord(rec Record, out any) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// RecordID returns the caseId carried by rec.
func RecordID(rec Record) string {
	switch v := rec["caseId"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
