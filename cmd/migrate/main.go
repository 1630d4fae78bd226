// Command migrate applies the embedded Postgres schema migrations.
//
//	migrate -direction up
//	migrate -direction down
//	migrate -version
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/app"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	showVersion := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if *showVersion {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			log.Error("migrate.version.fail", "err", err)
			os.Exit(1)
		}
		log.Info("migrate.version", "version", v, "dirty", dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Error("migrate.fail", "direction", *direction, "err", err)
		os.Exit(1)
	}
	log.Info("migrate.done", "direction", *direction)
}
