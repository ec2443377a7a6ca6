// Command adminauth-devserver runs the in-memory administration backend for
// local development of adminauth clients.
//
// It seeds one administrator and prints reset codes to the log instead of
// sending mail.
//
// Run:
//
//	go run ./cmd/adminauth-devserver -admin-email root@example.com -admin-password correct-horse
//
// Then:
//
//	adminauth --config dev.toml login --email root@example.com
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/adminauth/internal/devserver"
	"github.com/MrEthical07/adminauth/internal/rate"
	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using flags and environment")
	}
}

func main() {
	var (
		addr      = flag.String("addr", envOr("ADMINAUTH_DEV_ADDR", ":8080"), "listen address")
		secret    = flag.String("secret", os.Getenv("ADMINAUTH_DEV_SECRET"), "token signing secret, at least 32 bytes")
		email     = flag.String("admin-email", envOr("ADMINAUTH_DEV_ADMIN_EMAIL", "root@example.com"), "seeded administrator email")
		pass      = flag.String("admin-password", envOr("ADMINAUTH_DEV_ADMIN_PASSWORD", "correct-horse"), "seeded administrator password")
		origins   = flag.String("cors-origins", os.Getenv("ADMINAUTH_DEV_CORS_ORIGINS"), "comma separated allowed origins")
		resetTTL  = flag.Duration("reset-ttl", 10*time.Minute, "lifetime of reset tokens")
		redisAddr = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis address for the sign-in throttle; empty disables it")
		maxFails  = flag.Int("max-login-failures", 10, "failed sign-ins allowed per email per window")
		window    = flag.Duration("throttle-window", 15*time.Minute, "sign-in throttle window")
	)
	flag.Parse()

	if len(*secret) < 32 {
		log.Fatal("a secret of at least 32 bytes is required (-secret or ADMINAUTH_DEV_SECRET)")
	}

	logger := log.New(os.Stderr, "devserver ", log.LstdFlags)
	cfg := devserver.DefaultConfig([]byte(*secret))
	cfg.ResetTTL = *resetTTL
	cfg.Logger = logger
	cfg.OTPSink = func(email, code string) {
		logger.Printf("reset code for %s: %s", email, code)
	}

	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		limiter, err := rate.New(rdb, rate.Config{MaxAttempts: *maxFails, Window: *window, Prefix: "devserver:login"})
		if err != nil {
			log.Fatalf("throttle: %v", err)
		}
		cfg.Throttle = limiter
		logger.Printf("throttling sign-in to %d failures per %s via %s", *maxFails, *window, *redisAddr)
	}

	backend, err := devserver.New(cfg)
	if err != nil {
		log.Fatalf("devserver: %v", err)
	}
	if _, err := backend.AddUser("Administrator", *email, *pass, devserver.RoleAdmin); err != nil {
		log.Fatalf("seed administrator: %v", err)
	}
	backend.AddEvent(map[string]any{"name": "Launch", "status": "scheduled"})
	backend.AddReport(map[string]any{"reason": "Spam", "status": "open"})

	var handler http.Handler = backend
	if *origins != "" {
		handler = handlers.CORS(
			handlers.AllowedOrigins(strings.Split(*origins, ",")),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(handler)
	}
	handler = handlers.LoggingHandler(os.Stdout, handler)

	srv := &http.Server{
		Handler:      handler,
		Addr:         *addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s, administrator %s", *addr, *email)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
