package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mensabot/internal/model"
)

var (
	ErrDuplicate = errors.New("subscription already exists")
	ErrNotFound  = errors.New("subscription not found")
)

// SubscriptionRepository is the durable table of user -> local send time.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Insert stores a new row. An existing row for userID is never overwritten.
func (r *SubscriptionRepository) Insert(ctx context.Context, userID int64, hour, minute int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Subscription
		err := tx.Where("user_id = ?", userID).Take(&existing).Error
		switch {
		case err == nil:
			return ErrDuplicate
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(&model.Subscription{UserID: userID, Hour: hour, Minute: minute}).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicate), errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("insert subscription %d: %w", userID, ErrDuplicate)
	default:
		return fmt.Errorf("insert subscription %d: %w", userID, err)
	}
}

func (r *SubscriptionRepository) Delete(ctx context.Context, userID int64) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("delete subscription %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete subscription %d: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&sub).Error
	switch {
	case err == nil:
		return &sub, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get subscription %d: %w", userID, ErrNotFound)
	default:
		return nil, fmt.Errorf("get subscription %d: %w", userID, err)
	}
}

// ListAll returns every row; order is unspecified.
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := r.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// Reset drops the table and recreates it empty.
func (r *SubscriptionRepository) Reset(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	if err := m.DropTable(&model.Subscription{}); err != nil {
		return fmt.Errorf("drop subscriptions: %w", err)
	}
	if err := m.AutoMigrate(&model.Subscription{}); err != nil {
		return fmt.Errorf("recreate subscriptions: %w", err)
	}
	return nil
}
