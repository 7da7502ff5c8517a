package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/storysync/internal/agent"
	"github.com/dmitrijs2005/storysync/internal/agent/config"
	"github.com/dmitrijs2005/storysync/internal/buildinfo"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := agent.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
