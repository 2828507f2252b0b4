package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"super_clicker/internal/config"
	"super_clicker/internal/db"
	"super_clicker/internal/domain"
	"super_clicker/internal/repository"
	"super_clicker/internal/service"
	"super_clicker/internal/store"
)

func main() {
	userID := flag.Int64("id", 1234567890, "telegram user id")
	name := flag.String("name", "testuser", "username")
	admin := flag.Bool("admin", false, "issue an admin token")
	flag.Parse()

	cfg := config.Load()
	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	repo := repository.NewPlayerRepository(pool)
	ctx := context.Background()

	rec, err := repo.Fetch(ctx, *userID)
	switch {
	case err == nil:
		log.Printf("player already exists id=%d username=%s coins=%d\n", rec.UserID, rec.Username, rec.Coins)
	case errors.Is(err, store.ErrNotFound):
		rec = domain.NewPlayerRecord(*userID, *name, time.Now())
		if err := repo.Store(ctx, rec); err != nil {
			log.Fatalf("create player failed: %v", err)
		}
		log.Printf("player created id=%d\n", rec.UserID)
	default:
		log.Fatalf("fetch player failed: %v", err)
	}

	service.InitJWT(cfg.JWTSecret)
	token, err := service.GenerateJWT(rec.UserID, *admin || cfg.IsAdmin(rec.UserID))
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
