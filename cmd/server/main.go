// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/oscarnight/server/internal/database"
	"github.com/oscarnight/server/internal/handlers"
	"github.com/oscarnight/server/internal/middleware"
	"github.com/oscarnight/server/internal/notify"
	"github.com/oscarnight/server/internal/session"
)

func main() {
	session.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	rdb, err := notify.Connect()
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer rdb.Close()

	store := database.New(pool, notify.NewPublisher(rdb))
	srv := handlers.NewServer(store, handlers.NewRedisChannel(rdb), logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/ping", handlers.PingHandler)

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(srv),
	)))
	mux.Handle("/room/join", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.JoinRoomHandler(srv),
	)))
	mux.Handle("/room/leave", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LeaveRoomHandler(srv),
	)))
	mux.Handle("/room/leaderboard", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LeaderboardHandler(srv),
	)))
	mux.Handle("/session", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionHandler(srv),
	)))

	// room ws
	mux.Handle("/room/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, srv),
	)))

	handler := corsHandler().Handler(mux)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// corsHandler permits the configured front-end origins; the session cookie
// requires credentialed requests.
func corsHandler() *cors.Cors {
	origins := []string{"http://localhost:5173"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
}
