package models

import "time"

// SubscriberModel is one opted-in email address. Rows are only ever inserted;
// the unique index on email is what makes subscribing idempotent. created_at
// is assigned by the database, not by the process.
type SubscriberModel struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email"      gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false;default:CURRENT_TIMESTAMP;not null;index"`
}

func (SubscriberModel) TableName() string { return "subscribers" }
