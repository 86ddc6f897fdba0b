package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophshare/internal/cli"
	"github.com/dmitrijs2005/gophshare/internal/config"
	"github.com/dmitrijs2005/gophshare/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
