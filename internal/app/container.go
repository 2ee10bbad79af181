package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lotusmind/session-booking-backend/internal/api"
	"github.com/lotusmind/session-booking-backend/internal/auth"
	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/mentor"
	"github.com/lotusmind/session-booking-backend/internal/notification"
	"github.com/lotusmind/session-booking-backend/internal/payment"
	"github.com/lotusmind/session-booking-backend/internal/reservation"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration

	Gateway  payment.Gateway
	Sender   notification.Sender
	Currency string

	HoldTTL               time.Duration
	SweepInterval         time.Duration
	SessionStatusInterval time.Duration

	Logger *zap.Logger
}

// Container holds the initialized components that are needed externally:
// the router to serve and the background workers to run.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	Dispatcher   *notification.Dispatcher
	Sweeper      *reservation.Sweeper
	StatusWorker *booking.StatusWorker
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	dispatcher := notification.NewDispatcher(cfg.Sender, cfg.Logger)

	// Mentor module
	mentorRepo := mentor.NewPgxRepository(cfg.DBPool)
	mentorService := mentor.NewService(mentorRepo)

	// Slot module
	slotRepo := slot.NewPgxRepository(cfg.DBPool)
	slotService := slot.NewService(slotRepo, mentorService)

	// Booking module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo)

	// Reservation module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool, bookingRepo, slotRepo)
	reservationService := reservation.NewService(
		reservationRepo,
		slotRepo,
		bookingRepo,
		mentorRepo,
		cfg.Gateway,
		dispatcher,
		cfg.Currency,
		cfg.HoldTTL,
		cfg.Logger,
	)

	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		MentorService:      mentorService,
		SlotService:        slotService,
		BookingService:     bookingService,
		ReservationService: reservationService,
		JWTManager:         jwtManager,
		Logger:             cfg.Logger,
	})

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		Dispatcher:   dispatcher,
		Sweeper:      reservation.NewSweeper(reservationRepo, cfg.SweepInterval, cfg.Logger),
		StatusWorker: booking.NewStatusWorker(bookingRepo, cfg.SessionStatusInterval, cfg.Logger),
	}
}
