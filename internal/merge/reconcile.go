package merge

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownField = errors.New("unknown merge field")
	ErrMissingCase  = errors.New("both cases must be loaded before merging")
	ErrSameCase     = errors.New("a case cannot be merged into itself")
)

// Side picks one of the two candidate records.
type Side int

const (
	Left Side = iota
	Right
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// MarshalText encodes the side as "left" or "right".
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "left" or "right".
func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "left":
		*s = Left
	case "right":
		*s = Right
	default:
		return fmt.Errorf("unknown merge side %q", string(b))
	}
	return nil
}

// FieldDiff is one reviewable point of the merge. Array entries describe a
// single distinct item and whether each side holds it.
type FieldDiff struct {
	Path         string `json:"path"`
	Key          string `json:"key"`
	Parent       string `json:"parent,omitempty"`
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	Left         any    `json:"left,omitempty"`
	Right        any    `json:"right,omitempty"`
	LeftDisplay  string `json:"leftDisplay"`
	RightDisplay string `json:"rightDisplay"`
	InLeft       bool   `json:"inLeft"`
	InRight      bool   `json:"inRight"`
	Complex      bool   `json:"complex"`
}

// Value returns the side's value for this entry.
func (d FieldDiff) Value(side Side) any {
	if side == Right {
		return d.Right
	}
	return d.Left
}

// Has reports whether side contributes anything to this entry.
func (d FieldDiff) Has(side Side) bool {
	if d.Kind == Array {
		if side == Right {
			return d.InRight
		}
		return d.InLeft
	}
	return HasValue(d.Value(side))
}

// Conflicting reports whether the two sides disagree.
func (d FieldDiff) Conflicting() bool {
	if d.Kind == Array {
		return d.InLeft != d.InRight
	}
	return canonical(d.Left) != canonical(d.Right)
}

// Reconciliation holds the diff between two cases and the reviewer's choices.
type Reconciliation struct {
	left, right Record
	diffs       []FieldDiff
	index       map[string]int
	primary     Side
	selected    map[string]Side
}

// Reconcile computes the diff set of left and right over fields. Left is the
// initially kept case.
func Reconcile(left, right Record, fields []Field) *Reconciliation {
	r := &Reconciliation{
		left:     left,
		right:    right,
		index:    make(map[string]int),
		primary:  Left,
		selected: make(map[string]Side),
	}
	for _, f := range fields {
		switch f.Kind {
		case Scalar:
			r.scalarDiff(f)
		case Array:
			r.arrayDiffs(f)
		case Object:
			r.objectDiffs(f)
		}
	}
	r.resetSelections()
	return r
}

func (r *Reconciliation) add(d FieldDiff) {
	path := d.Path
	for n := 2; ; n++ {
		if _, taken := r.index[SanitizeKey(path)]; !taken {
			break
		}
		path = fmt.Sprintf("%s #%d", d.Path, n)
	}
	d.Path = path
	d.Key = SanitizeKey(path)
	r.index[d.Key] = len(r.diffs)
	r.diffs = append(r.diffs, d)
}

func (r *Reconciliation) scalarDiff(f Field) {
	lv, rv := r.left[f.Name], r.right[f.Name]
	if !HasValue(lv) && !HasValue(rv) {
		return
	}
	r.add(FieldDiff{
		Path:         f.Name,
		Name:         f.Name,
		Kind:         Scalar,
		Left:         lv,
		Right:        rv,
		LeftDisplay:  DisplayValue(f.Name, lv),
		RightDisplay: DisplayValue(f.Name, rv),
		InLeft:       HasValue(lv),
		InRight:      HasValue(rv),
	})
}

func (r *Reconciliation) arrayDiffs(f Field) {
	leftItems := distinctItems(r.left[f.Name])
	rightItems := distinctItems(r.right[f.Name])

	inRight := make(map[string]bool, len(rightItems))
	for _, item := range rightItems {
		inRight[canonical(item)] = true
	}
	inLeft := make(map[string]bool, len(leftItems))
	for _, item := range leftItems {
		inLeft[canonical(item)] = true
	}

	emit := func(item any) {
		id := canonical(item)
		display := DisplayValue(f.Name, item)
		if display == "" {
			display = id
		}
		d := FieldDiff{
			Path:    f.Name + "." + display,
			Parent:  f.Name,
			Name:    f.Name,
			Kind:    Array,
			InLeft:  inLeft[id],
			InRight: inRight[id],
			Complex: true,
		}
		if d.InLeft {
			d.Left = item
			d.LeftDisplay = display
		}
		if d.InRight {
			d.Right = item
			d.RightDisplay = display
		}
		r.add(d)
	}

	for _, item := range leftItems {
		emit(item)
	}
	for _, item := range rightItems {
		if !inLeft[canonical(item)] {
			emit(item)
		}
	}
}

func (r *Reconciliation) objectDiffs(f Field) {
	lo, _ := r.left[f.Name].(map[string]any)
	ro, _ := r.right[f.Name].(map[string]any)
	for _, sub := range f.Subfields {
		lv, rv := lo[sub], ro[sub]
		if !HasValue(lv) && !HasValue(rv) {
			continue
		}
		r.add(FieldDiff{
			Path:         f.Name + "." + sub,
			Parent:       f.Name,
			Name:         sub,
			Kind:         Object,
			Left:         lv,
			Right:        rv,
			LeftDisplay:  DisplayValue(sub, lv),
			RightDisplay: DisplayValue(sub, rv),
			InLeft:       HasValue(lv),
			InRight:      HasValue(rv),
			Complex:      true,
		})
	}
}

func distinctItems(v any) []any {
	items, _ := v.([]any)
	seen := make(map[string]bool, len(items))
	out := make([]any, 0, len(items))
	for _, item := range items {
		if !HasValue(item) {
			continue
		}
		id := canonical(item)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

// Diffs returns a copy of the diff entries in declaration order.
func (r *Reconciliation) Diffs() []FieldDiff {
	out := make([]FieldDiff, len(r.diffs))
	copy(out, r.diffs)
	return out
}

// HasConflicts reports whether any entry differs between the two sides.
func (r *Reconciliation) HasConflicts() bool {
	for _, d := range r.diffs {
		if d.Conflicting() {
			return true
		}
	}
	return false
}

// Primary returns the side currently treated as the kept case.
func (r *Reconciliation) Primary() Side {
	return r.primary
}

// KeptID and RemovedID follow the primary side.
func (r *Reconciliation) KeptID() string {
	return RecordID(r.record(r.primary))
}

func (r *Reconciliation) RemovedID() string {
	return RecordID(r.record(r.primary.Other()))
}

func (r *Reconciliation) record(side Side) Record {
	if side == Right {
		return r.right
	}
	return r.left
}

// Default returns the selection an entry gets when nothing was chosen: the
// primary side when it holds a value, otherwise the other side.
func (r *Reconciliation) Default(d FieldDiff) Side {
	if d.Has(r.primary) {
		return r.primary
	}
	return r.primary.Other()
}

func (r *Reconciliation) resetSelections() {
	r.selected = make(map[string]Side, len(r.diffs))
	for _, d := range r.diffs {
		r.selected[d.Key] = r.Default(d)
	}
}

// Switch swaps the primary side and re-defaults every selection.
func (r *Reconciliation) Switch() {
	r.primary = r.primary.Other()
	r.resetSelections()
}

// Selection returns the current choice for key.
func (r *Reconciliation) Selection(key string) (Side, bool) {
	s, ok := r.selected[key]
	return s, ok
}

// Selections returns a copy of all current choices keyed by sanitized key.
func (r *Reconciliation) Selections() map[string]Side {
	out := make(map[string]Side, len(r.selected))
	for k, v := range r.selected {
		out[k] = v
	}
	return out
}

// Select records the choice for a sanitized key.
func (r *Reconciliation) Select(key string, side Side) error {
	if _, ok := r.index[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, UnsanitizeKey(key))
	}
	r.selected[key] = side
	return nil
}

// SelectPath records the choice for an unsanitized field path.
func (r *Reconciliation) SelectPath(path string, side Side) error {
	return r.Select(SanitizeKey(path), side)
}

// Apply records a batch of choices; nothing is recorded when any key is unknown.
func (r *Reconciliation) Apply(selections map[string]Side) error {
	for key := range selections {
		if _, ok := r.index[key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, UnsanitizeKey(key))
		}
	}
	for key, side := range selections {
		r.selected[key] = side
	}
	return nil
}

// Provenance is stamped on the merged record.
type Provenance struct {
	KeptCaseID    string    `json:"keptCaseId"`
	RemovedCaseID string    `json:"removedCaseId"`
	MergedAt      time.Time `json:"mergedAt"`
}

// Merged is the assembled result of a reconciliation.
type Merged struct {
	Record     Record
	Provenance Provenance
}

// Assemble builds the merged record from the kept case and the current selections.
func (r *Reconciliation) Assemble(now time.Time) (Merged, error) {
	keptID, removedID := r.KeptID(), r.RemovedID()
	if keptID == "" || removedID == "" {
		return Merged{}, ErrMissingCase
	}
	if keptID == removedID {
		return Merged{}, ErrSameCase
	}

	out := cloneValue(map[string]any(r.record(r.primary))).(map[string]any)
	arrays := make(map[string][]any)
	seen := make(map[string]map[string]bool)
	objects := make(map[string]map[string]any)
	var arrayOrder, objectOrder []string

	for _, d := range r.diffs {
		side := r.selected[d.Key]
		switch d.Kind {
		case Scalar:
			if v := d.Value(side); HasValue(v) {
				out[d.Name] = cloneValue(v)
			} else {
				delete(out, d.Name)
			}
		case Array:
			if _, ok := arrays[d.Parent]; !ok {
				arrays[d.Parent] = []any{}
				seen[d.Parent] = make(map[string]bool)
				arrayOrder = append(arrayOrder, d.Parent)
			}
			if !d.Has(side) {
				continue
			}
			item := d.Value(side)
			id := canonical(item)
			if seen[d.Parent][id] {
				continue
			}
			seen[d.Parent][id] = true
			arrays[d.Parent] = append(arrays[d.Parent], cloneValue(item))
		case Object:
			if _, ok := objects[d.Parent]; !ok {
				objects[d.Parent] = make(map[string]any)
				objectOrder = append(objectOrder, d.Parent)
			}
			if v := d.Value(side); HasValue(v) {
				objects[d.Parent][d.Name] = cloneValue(v)
			}
		}
	}
	for _, parent := range arrayOrder {
		out[parent] = arrays[parent]
	}
	for _, parent := range objectOrder {
		out[parent] = objects[parent]
	}

	prov := Provenance{KeptCaseID: keptID, RemovedCaseID: removedID, MergedAt: now.UTC()}
	out["caseId"] = keptID
	out["mergedFrom"] = map[string]any{
		"keptCaseId":    prov.KeptCaseID,
		"removedCaseId": prov.RemovedCaseID,
		"mergedAt":      prov.MergedAt.Format(time.RFC3339),
	}
	return Merged{Record: Record(out), Provenance: prov}, nil
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[k] = cloneValue(item)
		}
		return m
	case Record:
		return cloneValue(map[string]any(x))
	case []any:
		s := make([]any, len(x))
		for i, item := range x {
			s[i] = cloneValue(item)
		}
		return s
	}
	return v
}
