package models

import "time"

type UserRole string

const (
	RoleSubscriber UserRole = "SUBSCRIBER"
	RoleAttendant  UserRole = "ATTENDANT"
	RoleManager    UserRole = "MANAGER"
	RoleAdmin      UserRole = "ADMIN"
)

type Subscriber struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Username  string   `gorm:"uniqueIndex;not null" json:"username"`
	Code      string   `gorm:"type:varchar(6);not null" json:"-"`
	Name      string   `gorm:"not null" json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	CarNumber string   `json:"car_number"`
	Role      UserRole `gorm:"type:varchar(20);not null;default:'SUBSCRIBER'" json:"role"`
	// Derived projection of session state; the session registry is authoritative.
	IsLoggedIn bool      `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Subscriber) TableName() string {
	return "users"
}
