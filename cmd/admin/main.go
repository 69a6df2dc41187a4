// Package main provides account and maintenance utilities for Agora operators.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/redisstore"
	"agora/internal/repository"

	"gorm.io/gorm"
)

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>      - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>       - Demote user from admin")
	fmt.Println("  go run ./cmd/admin list-admins            - List all admins")
	fmt.Println("  go run ./cmd/admin block <user_id>        - Block a user")
	fmt.Println("  go run ./cmd/admin unblock <user_id>      - Unblock a user")
	fmt.Println("  go run ./cmd/admin purge-tokens           - Delete expired revoked-token rows")
	fmt.Println("  go run ./cmd/admin events tail            - Print published events until interrupted")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]
	if command == "events" {
		if len(os.Args) < 3 || os.Args[2] != "tail" {
			fmt.Println("Usage: go run ./cmd/admin events tail")
			os.Exit(1)
		}
		if err := tailEvents(ctx, cfg.RedisURL); err != nil {
			log.Fatalf("Event tail failed: %v", err)
		}
		return
	}

	db, err := database.ConnectWithOptions(cfg, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	users := repository.NewUserRepository(db)

	switch command {
	case "promote":
		setAdmin(ctx, users, requireUserID("promote"), true)
	case "demote":
		setAdmin(ctx, users, requireUserID("demote"), false)
	case "list-admins":
		listAdmins(ctx, users)
	case "block":
		setBlocked(ctx, users, requireUserID("block"), true)
	case "unblock":
		setBlocked(ctx, users, requireUserID("unblock"), false)
	case "purge-tokens":
		purgeTokens(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func requireUserID(command string) uint {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin %s <user_id>\n", command)
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID: %s\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func loadUser(ctx context.Context, users repository.UserRepository, id uint) *models.User {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			fmt.Printf("User with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	return user
}

func setAdmin(ctx context.Context, users repository.UserRepository, id uint, admin bool) {
	user := loadUser(ctx, users, id)
	if user.IsAdmin == admin {
		if admin {
			fmt.Printf("User %s (ID: %d) is already an admin\n", user.Username, user.ID)
		} else {
			fmt.Printf("User %s (ID: %d) is not an admin\n", user.Username, user.ID)
		}
		return
	}
	if err := users.SetAdmin(ctx, id, admin); err != nil {
		log.Fatalf("Failed to update admin flag: %v", err)
	}
	if admin {
		fmt.Printf("Promoted %s (ID: %d) to admin\n", user.Username, user.ID)
	} else {
		fmt.Printf("Demoted %s (ID: %d) from admin\n", user.Username, user.ID)
	}
}

func setBlocked(ctx context.Context, users repository.UserRepository, id uint, blocked bool) {
	user := loadUser(ctx, users, id)
	if user.IsBlocked == blocked {
		fmt.Printf("User %s (ID: %d) already has blocked=%t\n", user.Username, user.ID, blocked)
		return
	}
	if err := users.SetBlocked(ctx, id, blocked); err != nil {
		log.Fatalf("Failed to update blocked flag: %v", err)
	}
	fmt.Printf("Set blocked=%t for %s (ID: %d)\n", blocked, user.Username, user.ID)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("Current admins:")
	fmt.Println("-------------------------------------")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	fmt.Println("-------------------------------------")
}

func purgeTokens(ctx context.Context, db *gorm.DB) {
	removed, err := repository.NewRevokedTokenRepository(db).PurgeExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("Failed to purge revoked tokens: %v", err)
	}
	fmt.Printf("Purged %d expired revoked-token rows\n", removed)
}

func tailEvents(ctx context.Context, redisURL string) error {
	rdb, err := redisstore.Connect(ctx, redisURL)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	enc := json.NewEncoder(os.Stdout)
	err = notifications.NewNotifier(rdb).Subscribe(ctx, func(channel string, event notifications.Event) {
		_ = enc.Encode(map[string]interface{}{"channel": channel, "event": event})
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Listening for events, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}
