package main

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"mneo.com/vms/config"
	"mneo.com/vms/core"
	"mneo.com/vms/security"
	"mneo.com/vms/web/handlers"
	"mneo.com/vms/web/middlewares"
)

func logLevel(name string) core.LogLevel {
	switch name {
	case "silent":
		return core.LogLevelSilent
	case "error":
		return core.LogLevelError
	case "info":
		return core.LogLevelInfo
	default:
		return core.LogLevelWarn
	}
}

// sessionSecret decodes the configured secret, or generates an ephemeral one.
// An ephemeral secret just means all kiosk sessions end when the process does.
func sessionSecret(cfg config.Config) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return base64.StdEncoding.DecodeString(cfg.SessionSecret)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

func main() {
	configPath := config.DefaultPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	dm, err := core.Open(cfg.DatabasePath, logLevel(cfg.LogLevel))
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	// Schema must be current before any other store access; a failure here is
	// fatal, not retried.
	if err := dm.EnsureSchema(); err != nil {
		log.Fatal(err)
	}

	store := core.NewStore(dm)
	licenses := security.NewManager(store)

	wiped, err := licenses.VerifyDevice()
	if err != nil {
		log.Fatal(err)
	}
	if wiped {
		log.Println("database was bound to another device; visitor logs cleared and rebound")
	}

	if err := licenses.Check(); err != nil {
		// Not fatal: the kiosk UI opens on the activation screen instead.
		log.Printf("license check: %v", err)
	}

	secret, err := sessionSecret(cfg)
	if err != nil {
		log.Fatal(err)
	}

	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api/vms/v1.0")
	handlers.RegisterLicenseRoutes(api, &handlers.LicenseEndpoint{
		Manager:       licenses,
		SessionSecret: secret,
		SessionTTL:    cfg.SessionDuration(),
	})

	protected := api.Group("")
	protected.Use(middlewares.Authentication(secret))
	{
		handlers.RegisterVisitorRoutes(protected, store)
		handlers.RegisterBlacklistRoutes(protected, store)
	}

	log.Printf("visitor register listening on %s (database %s)", cfg.ListenAddr, cfg.DatabasePath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
