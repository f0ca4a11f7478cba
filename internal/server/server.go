package server

import (
	"time"

	"backend-feedhub/internal/auth"
	"backend-feedhub/internal/config"
	"backend-feedhub/internal/geocode"
	"backend-feedhub/internal/post"
	"backend-feedhub/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Geocoder geocode.Client
	Stream   *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	nominatim := geocode.NewNominatim(
		cfg.NominatimURL,
		cfg.NominatimUserAgent,
		time.Duration(cfg.GeocodeTimeoutSeconds)*time.Second,
	)
	geocoder := geocode.NewCached(nominatim, redisClient, time.Duration(cfg.GeocodeCacheTTLMin)*time.Minute)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Geocoder: geocoder,
		Stream:   stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	post.RegisterRoutes(s.App.Group("/posts"), post.NewService(s.DB, s.Geocoder, s.Stream), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/events"), s.Stream)
}
