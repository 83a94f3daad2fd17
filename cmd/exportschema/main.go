// Command exportschema dumps the schema of a single action as indented JSON,
// for review or for importing the action on another instance.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"labtrack/actions"
	"labtrack/config"
	"labtrack/database"
)

func main() {
	configName := flag.String("config", "settings.env", "dotenv configuration file")
	actionID := flag.Int64("action", 0, "id of the action to export")
	output := flag.String("output", "", "output file, defaults to stdout")
	flag.Parse()

	if *actionID <= 0 {
		log.Fatal("an action id must be given via -action")
	}

	ctx := context.Background()
	cfg := config.LoadEnvConfig(*configName)

	db := database.NewDatabase(cfg.DatabaseDSN)
	if err := db.Connect(ctx); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	actionsService, err := actions.NewService(database.NewActionsTable(db))
	if err != nil {
		log.Fatalf("failed to build actions service: %v", err)
	}

	action, err := actionsService.GetAction(ctx, *actionID)
	if err != nil {
		var notFound actions.ActionDoesNotExistError
		if errors.As(err, &notFound) {
			log.Fatalf("action %d does not exist", *actionID)
		}
		log.Fatalf("failed to load action %d: %v", *actionID, err)
	}

	schemaJSON, err := json.MarshalIndent(action.Schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}
	schemaJSON = append(schemaJSON, '\n')

	if *output == "" {
		fmt.Print(string(schemaJSON))
		return
	}
	if err := os.WriteFile(*output, schemaJSON, 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
}
