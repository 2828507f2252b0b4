package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"super_clicker/internal/service"
	"super_clicker/internal/ws"
)

// Connects to the status stream and prints every frame until interrupted.
func main() {
	userID := flag.Int64("user", 3001, "user id to subscribe as")
	flag.Parse()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(*userID, false)
	if err != nil {
		log.Fatalf("token: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sub, err := ws.Subscribe(ctx, baseURL, token)
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	log.Println("subscribed as user " + strconv.FormatInt(*userID, 10))

	err = sub.Listen(ctx, func(msg ws.StatusMessage) {
		b, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Println(string(b))
	})
	log.Println("stream closed:", err)
}
