package main

import (
	"log"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/httpserver"
	"github.com/formloom/formloom/internal/store"
)

// main boots the service: config → DB → schema → HTTP server.
func main() {
	// Load runtime config from environment (DB_URL, JWT_SECRET, ...).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		log.Fatal(err)
	}

	// Build HTTP router (public ingest + authenticated APIs).
	router := httpserver.NewRouter(cfg, db)

	log.Printf("server started on %s", cfg.Addr)
	log.Fatal(router.Run(cfg.Addr))
}
