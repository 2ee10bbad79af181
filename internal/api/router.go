package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lotusmind/session-booking-backend/internal/auth"
	"github.com/lotusmind/session-booking-backend/internal/booking"
	bookingHttp "github.com/lotusmind/session-booking-backend/internal/booking/http"
	"github.com/lotusmind/session-booking-backend/internal/mentor"
	mentorHttp "github.com/lotusmind/session-booking-backend/internal/mentor/http"
	"github.com/lotusmind/session-booking-backend/internal/pkg/response"
	"github.com/lotusmind/session-booking-backend/internal/reservation"
	reservationHttp "github.com/lotusmind/session-booking-backend/internal/reservation/http"
	"github.com/lotusmind/session-booking-backend/internal/slot"
	slotHttp "github.com/lotusmind/session-booking-backend/internal/slot/http"
)

// Config holds everything the router needs to assemble middleware and
// register routes for the modules.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	MentorService      mentor.Service
	SlotService        slot.Service
	BookingService     booking.Service
	ReservationService reservation.Service
	JWTManager         *auth.JWTManager
	Logger             *zap.Logger
}

// NewRouter initializes the HTTP router engine: middleware (CORS, logging,
// recovery, auth) plus the /v1 routes of every module.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(response.WithLogger(cfg.Logger))

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8081",
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	mentorMiddleware := auth.MentorRequired()

	mentorHandler := mentorHttp.NewHandler(cfg.MentorService)
	slotHandler := slotHttp.NewHandler(cfg.SlotService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.ReservationService)

	v1 := r.Group("/v1")
	{
		mentorHttp.RegisterRoutes(v1, mentorHandler, authMiddleware)
		slotHttp.RegisterRoutes(v1, slotHandler, authMiddleware, mentorMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
	}

	return r
}
