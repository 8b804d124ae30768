package server

import (
	"log"
	"strings"

	"backend-mongoliatrails/internal/auth"
	"backend-mongoliatrails/internal/blog"
	"backend-mongoliatrails/internal/booking"
	"backend-mongoliatrails/internal/comment"
	"backend-mongoliatrails/internal/config"
	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/notify"
	"backend-mongoliatrails/internal/settings"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/storage"
	"backend-mongoliatrails/internal/stream"
	"backend-mongoliatrails/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler,
		BodyLimit:    storage.MaxUploadSize + 1<<20,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

// Close stops the realtime hub. The pool and redis client belong to the caller.
func (s *Server) Close() {
	s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if s.Cfg.UploadDir != "" {
		s.App.Static("/uploads", s.Cfg.UploadDir)
	}

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	api := s.App.Group("/api")
	admin := api.Group("/admin", jwtMiddleware, auth.RequireRole(auth.RoleAdmin))

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB, auth.WithAdminEmails(s.Cfg.AdminEmailList()))
	auth.RegisterRoutes(api.Group("/auth"), authSvc, jwtMiddleware)
	auth.RegisterAdminRoutes(admin, authSvc)

	tripSvc := trip.NewService(s.DB)
	trip.RegisterRoutes(api.Group("/trips"), tripSvc)
	trip.RegisterAdminRoutes(admin.Group("/trips"), tripSvc)

	bookingSvc := booking.NewService(booking.NewPGStore(s.DB), tripSvc, bookingOptions(s, authSvc)...)
	booking.RegisterRoutes(api.Group("/bookings"), bookingSvc, jwtMiddleware)
	booking.RegisterAdminRoutes(admin.Group("/bookings"), bookingSvc)

	blogSvc := blog.NewService(s.DB)
	blog.RegisterRoutes(api.Group("/blog"), blogSvc)
	blog.RegisterAdminRoutes(admin.Group("/blogs"), blogSvc)

	commentSvc := comment.NewService(s.DB)
	comment.RegisterRoutes(api.Group("/comments"), commentSvc, auth.OptionalJWT(s.Cfg.JWTSecret))
	comment.RegisterAdminRoutes(admin.Group("/comments"), commentSvc)

	settingsSvc := settings.NewService(s.DB, s.Redis)
	settings.RegisterRoutes(api.Group("/settings"), settingsSvc)
	settings.RegisterAdminRoutes(admin.Group("/settings"), settingsSvc)

	storage.RegisterAdminRoutes(admin.Group("/uploads"), storage.NewService(s.DB, newUploader(s.Cfg)))
	stream.RegisterRoutes(api.Group("/stream"), s.Stream)
}

func bookingOptions(s *Server, users booking.UserReader) []booking.Option {
	opts := []booking.Option{
		booking.WithUserReader(users),
		booking.WithSeatPublisher(s.Stream),
		booking.WithNotifier(newNotifier(s.Cfg)),
		booking.WithLocation(s.Cfg.Location()),
		booking.WithDefaultLanguage(i18n.ParseLang(s.Cfg.DefaultLanguage, i18n.Base)),
		booking.WithReceiptFont(s.Cfg.ReceiptFont),
	}
	if s.Redis != nil {
		opts = append(opts, booking.WithIdempotency(booking.NewRedisIdempotency(s.Redis, s.Cfg.IdempotencyTTL)))
	}
	return opts
}

func newNotifier(cfg config.Config) notify.Notifier {
	var out notify.Multi
	if m := notify.NewMailer(cfg); m != nil {
		out = append(out, m)
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
	if err != nil {
		log.Printf("notify: telegram disabled err=%v", err)
	} else {
		out = append(out, tg)
	}
	if len(out) == 0 {
		return notify.Nop{}
	}
	return out
}

func newUploader(cfg config.Config) storage.Uploader {
	if cfg.S3Enabled() {
		up, err := storage.NewS3Uploader(cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKeyID, cfg.S3SecretAccessKey)
		if err == nil {
			return up
		}
		log.Printf("storage: s3 unavailable, using local disk err=%v", err)
	}
	return storage.NewLocalUploader(cfg.UploadDir, strings.TrimSpace(cfg.UploadBaseURL))
}
