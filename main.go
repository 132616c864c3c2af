package main

import (
	"log"
	"os"
	"strings"

	"personasim/pkg/completion"
	"personasim/pkg/config"
	"personasim/pkg/persona"
	"personasim/pkg/server"

	"github.com/joho/godotenv"
)

const defaultModel = "claude-sonnet-4-20250514"

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	// Load persona registry; any problem here is fatal
	registry, err := persona.Load(cfg.Personas.File, cfg.Personas.ExpectedCount)
	if err != nil {
		log.Fatalf("Failed to load personas: %v", err)
	}
	log.Printf("Loaded %d persona(s) from %s", len(registry.All()), cfg.Personas.File)

	model := os.Getenv("DEFAULT_MODEL")
	if model == "" {
		model = defaultModel
	}

	client := completion.NewClient(
		model,
		cfg.ModelSettings.Temperature,
		cfg.ModelSettings.TopP,
		cfg.ModelSettings.MaxTokens,
	)

	// Startup diagnostics: key presence only, never the secrets
	for _, p := range registry.All() {
		log.Printf("Persona %s (%s): %s configured: %v", p.ID, p.Code, p.APIKeyEnv, os.Getenv(p.APIKeyEnv) != "")
	}

	auth := server.AuthConfig{
		Enabled:  strings.EqualFold(os.Getenv("AUTH_ENABLED"), "true"),
		Username: os.Getenv("AUTH_USERNAME"),
		Password: os.Getenv("AUTH_PASSWORD"),
	}
	if auth.Enabled && (auth.Username == "" || auth.Password == "") {
		log.Fatal("AUTH_ENABLED is true but AUTH_USERNAME/AUTH_PASSWORD are not set")
	}
	log.Printf("Basic auth enabled: %v", auth.Enabled)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	srv := server.New(cfg, registry, client, auth)
	if err := srv.Run(":" + port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
