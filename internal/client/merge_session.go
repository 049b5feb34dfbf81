package client

import (
	"context"
	"time"

	"casework-backend/internal/merge"
	"casework-backend/internal/model"
	"casework-backend/internal/validate"
)

// MergeSession is one review of two cases. The case it is opened for starts
// as the kept case; the reviewer picks a side per diff entry and submits.
type MergeSession struct {
	client *Client
	keep   model.Case
	other  *model.Case
	rec    *merge.Reconciliation
	now    func() time.Time
}

// NewMergeSession loads the case a review is opened for.
func (c *Client) NewMergeSession(ctx context.Context, keepID string) (*MergeSession, error) {
	keep, err := c.GetCase(ctx, keepID)
	if err != nil {
		return nil, err
	}
	return &MergeSession{client: c, keep: keep, now: time.Now}, nil
}

// Load resolves the second case and computes the diff. Loading another case
// discards every selection made so far.
func (s *MergeSession) Load(ctx context.Context, otherID string) error {
	if otherID == s.keep.ID {
		return merge.ErrSameCase
	}
	other, err := s.client.GetCase(ctx, otherID)
	if err != nil {
		return err
	}
	left, err := merge.ToRecord(s.keep)
	if err != nil {
		return err
	}
	right, err := merge.ToRecord(other)
	if err != nil {
		return err
	}
	s.other = &other
	s.rec = merge.Reconcile(left, right, merge.CaseFields)
	return nil
}

// Loaded reports whether both cases are present.
func (s *MergeSession) Loaded() bool {
	return s.rec != nil
}

// Diffs returns the reviewable entries; nil until the second case is loaded.
func (s *MergeSession) Diffs() []merge.FieldDiff {
	if s.rec == nil {
		return nil
	}
	return s.rec.Diffs()
}

// HasConflicts reports whether the two cases differ anywhere.
func (s *MergeSession) HasConflicts() bool {
	return s.rec != nil && s.rec.HasConflicts()
}

// Selection returns the side currently chosen for a sanitized key.
func (s *MergeSession) Selection(key string) (merge.Side, bool) {
	if s.rec == nil {
		return merge.Left, false
	}
	return s.rec.Selection(key)
}

// Select chooses a side for a sanitized key.
func (s *MergeSession) Select(key string, side merge.Side) error {
	if s.rec == nil {
		return merge.ErrMissingCase
	}
	return s.rec.Select(key, side)
}

// SelectPath chooses a side for a display path such as "phoneNumbers.555-1111 (Home)".
func (s *MergeSession) SelectPath(path string, side merge.Side) error {
	if s.rec == nil {
		return merge.ErrMissingCase
	}
	return s.rec.SelectPath(path, side)
}

// Switch makes the other case the kept one and resets every selection.
func (s *MergeSession) Switch() error {
	if s.rec == nil {
		return merge.ErrMissingCase
	}
	s.rec.Switch()
	return nil
}

// KeptID and RemovedID follow the current primary side.
func (s *MergeSession) KeptID() string {
	if s.rec == nil {
		return s.keep.ID
	}
	return s.rec.KeptID()
}

func (s *MergeSession) RemovedID() string {
	if s.rec == nil {
		return ""
	}
	return s.rec.RemovedID()
}

// Assemble builds the merged record from the current selections without
// sending it.
func (s *MergeSession) Assemble() (merge.Merged, error) {
	if s.rec == nil {
		return merge.Merged{}, merge.ErrMissingCase
	}
	return s.rec.Assemble(s.now())
}

// Submit validates the merged record and sends it. Local state is left
// untouched when anything fails, so the reviewer can correct and retry.
func (s *MergeSession) Submit(ctx context.Context) (model.Case, error) {
	if s.rec == nil {
		return model.Case{}, merge.ErrMissingCase
	}
	session := s.client.Session()
	if session.UserID == "" {
		return model.Case{}, ErrNoUser
	}
	merged, err := s.rec.Assemble(s.now())
	if err != nil {
		return model.Case{}, err
	}
	if errs := validate.Case.Check(merged.Record); errs != nil {
		return model.Case{}, errs
	}
	return s.client.MergeCases(ctx, MergeRequest{
		KeptCaseID:       merged.Provenance.KeptCaseID,
		RemovedCaseID:    merged.Provenance.RemovedCaseID,
		MergedFields:     merged.Record,
		ActingUserID:     session.UserID,
		ActiveLocationID: session.LocationID,
	})
}
