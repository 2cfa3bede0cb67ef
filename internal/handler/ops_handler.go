package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/parkhub/parking-service/internal/dto"
	"github.com/parkhub/parking-service/internal/service"
	"github.com/parkhub/parking-service/internal/session"
)

// OpsHandler exposes a read-only HTTP surface for dashboards and monitoring.
// All mutating traffic goes through the TCP protocol.
type OpsHandler struct {
	parking    service.ParkingService
	reports    service.ReportService
	users      service.UserService
	sessions   *session.Registry
	totalSpots int
}

func NewOpsHandler(parking service.ParkingService, reports service.ReportService, users service.UserService, sessions *session.Registry, totalSpots int) *OpsHandler {
	return &OpsHandler{
		parking:    parking,
		reports:    reports,
		users:      users,
		sessions:   sessions,
		totalSpots: totalSpots,
	}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.GET("/availability", h.Availability)
	api.GET("/parkings/active", h.ActiveParkings)
	api.GET("/reports/:kind", h.Report)
	api.GET("/subscribers", h.ListSubscribers)
	api.GET("/subscribers/:username", h.GetSubscriber)
	api.GET("/subscribers/:username/history", h.History)
}

func (h *OpsHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.HealthResponse{
		Status:   "ok",
		Sessions: h.sessions.Count(),
	})
}

func (h *OpsHandler) Availability(c echo.Context) error {
	free, err := h.parking.CheckAvailability(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "availability unavailable")
	}

	return c.JSON(http.StatusOK, dto.AvailabilityResponse{
		FreeSpots:  free,
		TotalSpots: h.totalSpots,
	})
}

func (h *OpsHandler) ActiveParkings(c echo.Context) error {
	orders, err := h.parking.ActiveOrders(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dto.ToOrderResponse(&o)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OpsHandler) Report(c echo.Context) error {
	report, err := h.reports.Generate(c.Request().Context(), c.Param("kind"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownReportType) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown report kind")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *OpsHandler) ListSubscribers(c echo.Context) error {
	subs, err := h.users.ListSubscribers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.SubscriberResponse, len(subs))
	for i, s := range subs {
		resp[i] = dto.ToSubscriberResponse(&s)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OpsHandler) GetSubscriber(c echo.Context) error {
	sub, err := h.users.GetSubscriber(c.Request().Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscriber not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToSubscriberResponse(sub))
}

func (h *OpsHandler) History(c echo.Context) error {
	orders, err := h.reports.ParkingHistory(c.Request().Context(), c.Param("username"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dto.ToOrderResponse(&o)
	}
	return c.JSON(http.StatusOK, resp)
}
