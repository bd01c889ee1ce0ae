package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/duelcircle/duelcircle/internal/db"
	"github.com/duelcircle/duelcircle/internal/service"
	"github.com/duelcircle/duelcircle/internal/store"
	"github.com/duelcircle/duelcircle/internal/ws"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	database := db.InitDB()
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	adminService := service.NewAdminService(store.NewAdminStore(database))
	if err := adminService.EnsureAdmin(context.Background(), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatal("Failed to set up admin:", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(database, sessionManager, hub, adminService)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("Server starting on", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal(err)
	}
}
