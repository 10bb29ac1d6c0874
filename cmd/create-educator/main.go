package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/database"
	"github.com/strivio/contesthub-backend/internal/logger"
	"github.com/strivio/contesthub-backend/internal/model"
	"github.com/strivio/contesthub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// Load Configuration
	cfg := config.Load()

	// Initialize Logger
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	educatorRepo := repository.NewEducatorRepository(pool)

	// CLI Input
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Educator ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Logic
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	educator := &model.Educator{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
	}

	if err := educatorRepo.Create(ctx, educator); err != nil {
		log.Fatal().Err(err).Msg("Failed to create educator")
	}

	fmt.Printf("\nSuccess! Educator '%s' (%s) created with ID: %d\n", educator.Name, educator.Email, educator.ID)
}
