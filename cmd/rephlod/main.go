// Command rephlod runs the billing rate resolution and credit accounting service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/rockyway/rephlo-sites-sub016/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	if *migrateOnly {
		if errMigrate := app.MigrateOnly(*configPath); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migration failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := app.Run(ctx, *configPath); errRun != nil {
		log.WithError(errRun).Fatal("service exited")
	}
}
