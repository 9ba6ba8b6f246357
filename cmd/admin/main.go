package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/mama165/sdk-go/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"globalchat/backend/internal/auth"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/models"
	"globalchat/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  add-user <handle>                    create a user
  token <handle>                       issue an access token for a user
  history <handle_a> <handle_b> [n]    print the last n private messages between two users`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Error("Failed to connect database", "error", err)
		os.Exit(1)
	}

	// No Redis: the CLI reads handles straight from the database.
	storageSvc := storage.NewStorageService(db, nil, 0, log)
	if err := storageSvc.Migrate(); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "add-user":
		if len(args) != 1 {
			fmt.Println("Usage: admin add-user <handle>")
			os.Exit(1)
		}
		user, err := addUser(ctx, storageSvc, args[0])
		if err != nil {
			log.Error("Error adding user", "error", err)
			os.Exit(1)
		}
		fmt.Printf("User %s created with id %d.\n", user.Username, user.ID)
	case "token":
		if len(args) != 1 {
			fmt.Println("Usage: admin token <handle>")
			os.Exit(1)
		}
		authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
		token, err := issueToken(ctx, storageSvc, authenticator, args[0])
		if err != nil {
			log.Error("Error issuing token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
	case "history":
		if len(args) < 2 || len(args) > 3 {
			fmt.Println("Usage: admin history <handle_a> <handle_b> [limit]")
			os.Exit(1)
		}
		limit := cfg.HistoryLimit
		if len(args) == 3 {
			limit, err = strconv.Atoi(args[2])
			if err != nil || limit <= 0 {
				fmt.Println("Invalid limit. Please provide a positive integer.")
				os.Exit(1)
			}
		}
		if err := printHistory(ctx, storageSvc, args[0], args[1], min(limit, config.MaxHistoryLimit)); err != nil {
			log.Error("Error reading history", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func addUser(ctx context.Context, s storage.Storage, handle string) (*models.User, error) {
	if handle == "" || len([]rune(handle)) > config.MaxHandleLength {
		return nil, fmt.Errorf("handle must be 1 to %d characters", config.MaxHandleLength)
	}
	user := &models.User{Username: handle}
	if err := s.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func issueToken(ctx context.Context, s storage.Storage, a *auth.Authenticator, handle string) (string, error) {
	identity, err := s.ResolveHandle(ctx, handle)
	if err != nil {
		return "", err
	}
	return a.GenerateToken(identity)
}

func printHistory(ctx context.Context, s storage.Storage, handleA, handleB string, limit int) error {
	a, err := s.ResolveHandle(ctx, handleA)
	if err != nil {
		return fmt.Errorf("%s: %w", handleA, err)
	}
	b, err := s.ResolveHandle(ctx, handleB)
	if err != nil {
		return fmt.Errorf("%s: %w", handleB, err)
	}

	messages, err := s.GetPrivateHistory(ctx, a.ID, b.ID, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(messages)
}
