package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"labtrack/config"
	"labtrack/database"
	"labtrack/database/migrations"
	"labtrack/mail"
	"labtrack/task"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadEnvConfig("settings.env")

	db := database.NewDatabase(cfg.DatabaseDSN)
	if err := db.Connect(ctx); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize database schema: %v", err)
	}
	if err := migrations.Apply(ctx, db.Pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	sender := mail.NewSMTPSender(
		cfg.MailServer, cfg.MailPort,
		cfg.MailUsername, cfg.MailPassword,
		cfg.MailSender, cfg.MailUseTLS,
	)

	broker := task.NewBroker(database.NewTasksTable(db), cfg.TaskWorkers)
	task.RegisterSendMailHandler(broker, sender)
	broker.Start()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	log.Println("shutting down")
	broker.Stop()
}
