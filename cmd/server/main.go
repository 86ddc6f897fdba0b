package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophshare/internal/config"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/server"
)

func main() {

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
