package models

import "time"

type ParkingSpot struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	IsOccupied bool `gorm:"not null;default:false" json:"is_occupied"`
}

func (ParkingSpot) TableName() string {
	return "parking_spots"
}

// ParkingOrder is active while ExitTime is nil; after exit it is immutable.
type ParkingOrder struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Code             string     `gorm:"uniqueIndex;not null" json:"code"`
	Username         string     `gorm:"not null;index" json:"username"`
	SpotID           uint       `gorm:"not null" json:"spot_id"`
	EntryTime        time.Time  `gorm:"not null" json:"entry_time"`
	ExpectedExitTime time.Time  `gorm:"not null" json:"expected_exit_time"`
	ExitTime         *time.Time `json:"exit_time,omitempty"`
	TotalCost        float64    `json:"total_cost"`
}

func (ParkingOrder) TableName() string {
	return "parking_orders"
}

func (o *ParkingOrder) IsActive() bool {
	return o.ExitTime == nil
}
