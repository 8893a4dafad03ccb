package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/readersync/internal/buildinfo"
	"github.com/dmitrijs2005/readersync/internal/client/cli"
	"github.com/dmitrijs2005/readersync/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx)
	if cerr := app.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}
