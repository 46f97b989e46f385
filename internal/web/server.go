package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/minasoft/clinic-server/internal/config"
	"github.com/minasoft/clinic-server/internal/db"
	"github.com/minasoft/clinic-server/internal/events"
	"github.com/minasoft/clinic-server/internal/ledger"
)

type Server struct {
	echo      *echo.Echo
	mgr       *db.Manager
	inventory *ledger.Inventory
	booking   *ledger.Booking
	publisher *events.Publisher
	js        jetstream.JetStream
	config    *config.Config
}

func NewServer(mgr *db.Manager, js jetstream.JetStream, cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	return &Server{
		echo:      e,
		mgr:       mgr,
		inventory: ledger.NewInventory(mgr.Database()),
		booking:   ledger.NewBooking(mgr.Database()),
		publisher: events.NewPublisher(js),
		js:        js,
		config:    cfg,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.config.WebPort)
	slog.Info("Web server starting", "port", s.config.WebPort)

	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("Web server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)

	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout)
	auth.DELETE("/account", s.handleDeleteAccount, s.requireAuth)

	patient := api.Group("/patient", s.requireAuth, s.requirePatient)
	patient.GET("/dashboard", s.handlePatientDashboard)
	patient.PUT("/account", s.handleUpdateAccount)
	patient.POST("/appointments", s.handlePatientBookAppointment)

	staff := api.Group("/staff", s.requireAuth, s.requireStaff)
	staff.GET("/patients", s.handleSearchPatients)
	staff.POST("/patients/search", s.handleAdvancedSearch)
	staff.GET("/patients/:id", s.handleGetPatient)
	staff.PUT("/patients/:id", s.handleUpdatePatient)
	staff.DELETE("/patients/:id", s.handleDeletePatient)
	staff.GET("/patients/:id/record", s.handlePatientRecord)
	staff.POST("/patients/:id/prescriptions", s.handleAddPrescription)
	staff.POST("/patients/:id/history", s.handleAddHistory)
	staff.GET("/appointments", s.handleUpcomingAppointments)
	staff.POST("/appointments", s.handleStaffBookAppointment)
	staff.PUT("/appointments/:id", s.handleEditAppointment)
	staff.POST("/appointments/:id/complete", s.handleCompleteAppointment)
	staff.DELETE("/appointments/:id", s.handleDeleteAppointment)

	meds := api.Group("/medications", s.requireAuth, s.requireStaff)
	meds.GET("", s.handleListMedications)
	meds.GET("/search", s.handleSearchMedications)
	meds.POST("", s.handleCreateMedication)
	meds.POST("/:id/quantity", s.handleAdjustQuantity)
	meds.DELETE("/:id", s.handleDeleteMedication)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	components := make(map[string]string)
	overallStatus := "healthy"

	// Check MongoDB
	if err := s.mgr.Ping(ctx); err != nil {
		components["mongodb"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		components["mongodb"] = "healthy"
	}

	// Check the event stream
	stream, err := s.js.Stream(ctx, events.StreamName)
	if err != nil {
		components["events"] = "unhealthy: stream not found"
		overallStatus = "degraded"
	} else {
		info, _ := stream.Info(ctx)
		if info != nil {
			components["events"] = fmt.Sprintf("healthy (messages: %d)", info.State.Msgs)
		} else {
			components["events"] = "healthy"
		}
	}

	// Check the stats bucket
	statsKV, err := s.js.KeyValue(ctx, events.StatsBucket)
	if err != nil {
		components["stats_store"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		status, _ := statsKV.Status(ctx)
		if status != nil {
			components["stats_store"] = fmt.Sprintf("healthy (values: %d)", status.Values())
		} else {
			components["stats_store"] = "healthy"
		}
	}

	health := map[string]interface{}{
		"status":     overallStatus,
		"timestamp":  time.Now(),
		"components": components,
		"version":    "1.0.0",
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, health)
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	statsKV, err := s.js.KeyValue(ctx, events.StatsBucket)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stats store unavailable")
	}

	getKVInt := func(key string) int {
		entry, err := statsKV.Get(ctx, key)
		if err != nil {
			return 0
		}
		val, _ := strconv.Atoi(string(entry.Value()))
		return val
	}

	stats := map[string]interface{}{
		"appointments_booked":  getKVInt("appointments_booked"),
		"bookings_rejected":    getKVInt("bookings_rejected"),
		"stock_applied":        getKVInt("stock_applied"),
		"stock_denied":         getKVInt("stock_denied"),
		"prescriptions_issued": getKVInt("prescriptions_issued"),
	}

	if entry, err := statsKV.Get(ctx, "last_event_time"); err == nil {
		stats["last_event_time"] = string(entry.Value())
	}

	return c.JSON(http.StatusOK, stats)
}
