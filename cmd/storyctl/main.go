package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/storysync/internal/storyctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := storyctl.NewRootCmd().ExecuteContext(ctx); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
