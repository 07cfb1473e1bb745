package model

import "time"

// KeyValue is a row of the session key-value store.
type KeyValue struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// PushSubscription holds a browser push subscription that receives alerts
// for one location scope.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Identity  string    `gorm:"size:128;index"`
	Location  string    `gorm:"size:128;not null;default:all"`
	CreatedAt time.Time `gorm:"not null"`
}
