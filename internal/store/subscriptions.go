package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casework-backend/internal/model"
)

// SaveSubscription creates or replaces a push subscription and the set of
// sites it follows.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, siteIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.Sites = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		var sites []*model.Site
		if len(siteIDs) > 0 {
			if err := tx.Find(&sites, siteIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(sub).Association("Sites").Replace(&sites); err != nil {
			return fmt.Errorf("failed to replace subscribed sites: %w", err)
		}
		sub.Sites = sites
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Sites").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFound(err, ErrSubscriptionNotFound)
	}
	return sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Sites").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SiteSubscriptions returns the subscriptions following a site.
func (s *gormStore) SiteSubscriptions(ctx context.Context, siteID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_site_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("ssm.site_id = ?", siteID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for site %d: %w", siteID, err)
	}
	return subs, nil
}
