package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"casework-backend/internal/model"
)

func (s *gormStore) CreateCase(ctx context.Context, c *model.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.MergedIntoID = ""
	c.RetiredAt = nil
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create case %s: %w", c.ID, err)
	}
	return nil
}

func (s *gormStore) GetCase(ctx context.Context, id string) (model.Case, error) {
	return findCase(s.db.WithContext(ctx), id)
}

func findCase(tx *gorm.DB, id string) (model.Case, error) {
	var c model.Case
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return model.Case{}, fmt.Errorf("case %s: %w", id, notFound(err, ErrCaseNotFound))
	}
	return c, nil
}

// findActiveCase loads a case that has not been retired by a merge.
func findActiveCase(tx *gorm.DB, id string) (model.Case, error) {
	c, err := findCase(tx, id)
	if err != nil {
		return c, err
	}
	if c.Retired() {
		return c, fmt.Errorf("case %s: %w (%s)", id, ErrCaseRetired, c.MergedIntoID)
	}
	return c, nil
}

func (s *gormStore) ListCases(ctx context.Context) ([]model.Case, error) {
	var cases []model.Case
	err := s.db.WithContext(ctx).
		Where("retired_at IS NULL").
		Order("last_name, first_name, id").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

// MergeCases overwrites the kept case with the merged fields and retires the
// removed case. Active check-ins, stays and activities of the removed case
// move to the kept case. Everything happens in one transaction.
func (s *gormStore) MergeCases(ctx context.Context, in MergeInput) (model.Case, error) {
	if in.KeptCaseID == in.RemovedCaseID {
		return model.Case{}, ErrSameCase
	}
	at := in.MergedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	var out model.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kept, err := findActiveCase(tx, in.KeptCaseID)
		if err != nil {
			return err
		}
		if _, err := findActiveCase(tx, in.RemovedCaseID); err != nil {
			return err
		}

		merged := in.Merged
		merged.ID = kept.ID
		merged.CreatedAt = kept.CreatedAt
		merged.MergedIntoID = ""
		merged.RetiredAt = nil
		if merged.MergedFrom == nil {
			merged.MergedFrom = &model.MergeProvenance{}
		}
		merged.MergedFrom.KeptCaseID = in.KeptCaseID
		merged.MergedFrom.RemovedCaseID = in.RemovedCaseID
		if merged.MergedFrom.MergedAt.IsZero() {
			merged.MergedFrom.MergedAt = at
		}
		if err := tx.Save(&merged).Error; err != nil {
			return fmt.Errorf("failed to save merged case %s: %w", kept.ID, err)
		}

		if err := tx.Model(&model.Case{}).
			Where("id = ?", in.RemovedCaseID).
			Updates(map[string]any{"merged_into_id": kept.ID, "retired_at": at}).Error; err != nil {
			return fmt.Errorf("failed to retire case %s: %w", in.RemovedCaseID, err)
		}

		name := merged.DisplayName()
		if err := tx.Model(&model.BedCheckIn{}).
			Where("case_id IN ?", []string{in.RemovedCaseID, kept.ID}).
			Updates(map[string]any{"case_id": kept.ID, "case_name": name}).Error; err != nil {
			return fmt.Errorf("failed to move check-ins of case %s: %w", in.RemovedCaseID, err)
		}
		if err := tx.Model(&model.BedStay{}).
			Where("case_id = ?", in.RemovedCaseID).
			Update("case_id", kept.ID).Error; err != nil {
			return fmt.Errorf("failed to move stays of case %s: %w", in.RemovedCaseID, err)
		}
		if err := tx.Model(&model.Activity{}).
			Where("case_id = ?", in.RemovedCaseID).
			Update("case_id", kept.ID).Error; err != nil {
			return fmt.Errorf("failed to move activities of case %s: %w", in.RemovedCaseID, err)
		}

		entry := model.CaseMergeLog{
			KeptCaseID:    kept.ID,
			RemovedCaseID: in.RemovedCaseID,
			ActingUserID:  in.ActingUserID,
			LocationID:    in.LocationID,
			MergedAt:      at,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record merge of %s into %s: %w", in.RemovedCaseID, kept.ID, err)
		}

		out, err = findCase(tx, kept.ID)
		return err
	})
	if err != nil {
		return model.Case{}, err
	}
	return out, nil
}

func (s *gormStore) MergeHistory(ctx context.Context, caseID string) ([]model.CaseMergeLog, error) {
	var logs []model.CaseMergeLog
	err := s.db.WithContext(ctx).
		Where("kept_case_id = ? OR removed_case_id = ?", caseID, caseID).
		Order("merged_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load merge history of case %s: %w", caseID, err)
	}
	return logs, nil
}

func (s *gormStore) AddActivity(ctx context.Context, a *model.Activity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findActiveCase(tx, a.CaseID); err != nil {
			return err
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("failed to add %s activity to case %s: %w", a.Type, a.CaseID, err)
		}
		return nil
	})
}

func (s *gormStore) ListActivities(ctx context.Context, caseID string) ([]model.Activity, error) {
	if _, err := findCase(s.db.WithContext(ctx), caseID); err != nil {
		return nil, err
	}
	var activities []model.Activity
	err := s.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC, id DESC").
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities of case %s: %w", caseID, err)
	}
	return activities, nil
}
