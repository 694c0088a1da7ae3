package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/KendrickOdei/fastTix-sub000/config"
	"github.com/KendrickOdei/fastTix-sub000/pkg/applogger"
)

func main() {
	var (
		upFlag     = flag.Bool("up", false, "apply pending migrations")
		downFlag   = flag.Bool("down", false, "roll back the last migration")
		statusFlag = flag.Bool("status", false, "show the current schema version")
		sourceFlag = flag.String("source", "file://migrations", "migration source")
	)
	flag.Parse()

	c := config.Get()
	logger := applogger.GetLogrus()

	m, err := migrate.New(*sourceFlag, c.PostgreSQL.DSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to open migration source")
	}
	defer m.Close()

	switch {
	case *upFlag:
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			logger.WithError(err).Fatal("migration failed")
		}
		logger.Info("migrations applied")
	case *downFlag:
		if err := m.Steps(-1); err != nil {
			logger.WithError(err).Fatal("rollback failed")
		}
		logger.Info("last migration rolled back")
	case *statusFlag:
		version, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			logger.WithError(err).Fatal("failed to read schema version")
		}
		logger.WithField("version", version).WithField("dirty", dirty).Info("schema status")
	default:
		fmt.Println("usage: migrate [-up | -down | -status]")
		os.Exit(1)
	}
}
