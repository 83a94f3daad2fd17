package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type LabTrackConfiguration struct {
	DatabaseDSN   string
	ManagementDSN string

	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailSender   string
	MailUseTLS   bool

	TaskWorkers int
}

// LoadEnvConfig reads configName as a dotenv file and builds the service
// configuration from the environment. Missing or malformed required values
// are fatal.
func LoadEnvConfig(configName string) LabTrackConfiguration {
	err := godotenv.Load(configName)
	if err != nil {
		log.Fatal("Error loading .env file")
	}

	databaseDSN := os.Getenv("LABTRACK_DATABASE_DSN")
	if databaseDSN == "" {
		log.Fatal("LABTRACK_DATABASE_DSN must be set")
	}
	managementDSN := os.Getenv("LABTRACK_MANAGEMENT_DSN")

	mailServer := os.Getenv("LABTRACK_MAIL_SERVER")
	mailPort := intEnv("LABTRACK_MAIL_PORT", 25)
	mailUsername := os.Getenv("LABTRACK_MAIL_USERNAME")
	mailPassword := os.Getenv("LABTRACK_MAIL_PASSWORD")
	mailSender := os.Getenv("LABTRACK_MAIL_SENDER")
	mailUseTLS := boolEnv("LABTRACK_MAIL_USE_TLS", false)

	taskWorkers := intEnv("LABTRACK_TASK_WORKERS", 2)

	return LabTrackConfiguration{
		DatabaseDSN:   databaseDSN,
		ManagementDSN: managementDSN,
		MailServer:    mailServer,
		MailPort:      mailPort,
		MailUsername:  mailUsername,
		MailPassword:  mailPassword,
		MailSender:    mailSender,
		MailUseTLS:    mailUseTLS,
		TaskWorkers:   taskWorkers,
	}
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("failed to parse integer for %s: %v", name, err)
	}
	return value
}

func boolEnv(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Fatalf("failed to parse boolean for %s: %v", name, err)
	}
	return value
}
