package models

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationActivated ReservationStatus = "ACTIVATED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// IsTerminal reports whether no further status transition is allowed.
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationActive
}

type Reservation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Code            string            `gorm:"uniqueIndex;not null" json:"code"`
	Username        string            `gorm:"not null;index" json:"username"`
	ReservationTime time.Time         `gorm:"not null" json:"reservation_time"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}
