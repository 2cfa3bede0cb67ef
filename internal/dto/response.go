package dto

import (
	"time"

	"github.com/parkhub/parking-service/internal/models"
)

type OrderResponse struct {
	Code             string     `json:"code"`
	Username         string     `json:"username"`
	SpotID           uint       `json:"spot_id"`
	EntryTime        time.Time  `json:"entry_time"`
	ExpectedExitTime time.Time  `json:"expected_exit_time"`
	ExitTime         *time.Time `json:"exit_time,omitempty"`
	TotalCost        float64    `json:"total_cost"`
}

type AvailabilityResponse struct {
	FreeSpots  int64 `json:"free_spots"`
	TotalSpots int   `json:"total_spots"`
}

type SubscriberResponse struct {
	Username  string          `json:"username"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	CarNumber string          `json:"car_number"`
	Role      models.UserRole `json:"role"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToOrderResponse(o *models.ParkingOrder) OrderResponse {
	return OrderResponse{
		Code:             o.Code,
		Username:         o.Username,
		SpotID:           o.SpotID,
		EntryTime:        o.EntryTime,
		ExpectedExitTime: o.ExpectedExitTime,
		ExitTime:         o.ExitTime,
		TotalCost:        o.TotalCost,
	}
}

func ToSubscriberResponse(s *models.Subscriber) SubscriberResponse {
	return SubscriberResponse{
		Username:  s.Username,
		Name:      s.Name,
		Phone:     s.Phone,
		Email:     s.Email,
		CarNumber: s.CarNumber,
		Role:      s.Role,
	}
}
