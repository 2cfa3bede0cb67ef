package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/parkhub/parking-service/config"
	"github.com/parkhub/parking-service/internal/dispatch"
	"github.com/parkhub/parking-service/internal/handler"
	"github.com/parkhub/parking-service/internal/repository"
	"github.com/parkhub/parking-service/internal/service"
	"github.com/parkhub/parking-service/internal/session"
	"github.com/parkhub/parking-service/internal/transport"
	"github.com/parkhub/parking-service/pkg/database"
	"github.com/parkhub/parking-service/pkg/logging"
	"github.com/parkhub/parking-service/pkg/rabbitmq"
	"go.uber.org/zap"
)

const expirySweepInterval = time.Minute

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(cfg.Environment)
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.SeedSpots(db, cfg.TotalParkingSpots); err != nil {
		logger.Fatal("seeding parking spots failed", zap.Error(err))
	}

	// Events are optional; without a broker the service runs standalone.
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer publisher.Close()
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	parkingRepo := repository.NewParkingRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	txManager := repository.NewTxManager(db)

	// Sessions and services
	sessions := session.NewRegistry()
	tariff := service.Tariff{
		HourlyRate:       cfg.HourlyRate,
		PenaltyRate:      cfg.PenaltyRate,
		MaxParkingHours:  cfg.MaxParkingHours,
		DefaultStayHours: 1,
		TotalSpots:       cfg.TotalParkingSpots,
	}
	userSvc := service.NewUserService(userRepo, txManager, sessions, logger)
	parkingSvc := service.NewParkingService(parkingRepo, txManager, publisher, tariff, logger)
	reservationSvc := service.NewReservationService(reservationRepo, parkingSvc, txManager, publisher, logger)
	reportSvc := service.NewReportService(reportRepo, cfg.TotalParkingSpots, logger)

	// TCP protocol server
	dispatcher := dispatch.New(userSvc, parkingSvc, reservationSvc, reportSvc, sessions, cfg.RequestTimeout, logger)
	tcpServer := transport.NewServer(dispatcher, logger)

	go func() {
		if err := tcpServer.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("tcp server failed", zap.Error(err))
		}
	}()

	// HTTP ops surface
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMw.Recover())
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))
	handler.NewOpsHandler(parkingSvc, reportSvc, userSvc, sessions, cfg.TotalParkingSpots).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Background sweep marking stale reservations expired
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(sweepCtx, cfg.RequestTimeout)
				if _, err := reservationSvc.ExpireOverdue(ctx); err != nil {
					logger.Warn("reservation expiry sweep failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()

	logger.Info("parking service started",
		zap.String("tcp_port", cfg.ServerPort),
		zap.String("http_port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tcpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tcp shutdown incomplete", zap.Error(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}
