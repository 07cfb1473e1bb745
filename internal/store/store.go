package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machine-dashboard-client/internal/model"
)

// ErrSessionNotFound is returned when no session is saved under a key.
var ErrSessionNotFound = errors.New("session not found")

// ErrSubscriptionNotFound is returned for an unknown push endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Store defines the interface for all database operations.
type Store interface {
	SaveSession(ctx context.Context, key string, sess model.Session) error
	LoadSession(ctx context.Context, key string) (model.Session, error)
	DeleteSession(ctx context.Context, key string) error

	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsFor(ctx context.Context, location string) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// SaveSession serializes sess under key, replacing any previous value.
func (s *gormStore) SaveSession(ctx context.Context, key string, sess model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	kv := model.KeyValue{Key: key, Value: string(raw), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to save session %q: %w", key, err)
	}
	return nil
}

// LoadSession returns the session saved under key.
func (s *gormStore) LoadSession(ctx context.Context, key string) (model.Session, error) {
	var kv model.KeyValue
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("failed to load session %q: %w", key, err)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(kv.Value), &sess); err != nil {
		return model.Session{}, fmt.Errorf("failed to unmarshal session %q: %w", key, err)
	}
	return sess, nil
}

// DeleteSession removes the session saved under key. Deleting a missing key
// is not an error.
func (s *gormStore) DeleteSession(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&model.KeyValue{}).Error; err != nil {
		return fmt.Errorf("failed to delete session %q: %w", key, err)
	}
	return nil
}

// UpsertSubscription creates sub or replaces the keys and scope of an
// existing subscription with the same endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.Location == "" {
		sub.Location = model.AllLocations
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "identity", "location"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sub, ErrSubscriptionNotFound
		}
		return sub, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsFor returns the subscriptions that should receive an alert
// raised for location. An empty location means a client-wide alert, which
// goes to every subscriber.
func (s *gormStore) SubscriptionsFor(ctx context.Context, location string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	q := s.db.WithContext(ctx)
	if location != "" {
		q = q.Where("location IN ?", []string{model.AllLocations, location})
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for %q: %w", location, err)
	}
	return subs, nil
}
