// Command storefrontctl is the operator CLI: it inspects orders and products
// and moves orders through fulfilment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmehra2102/sofa-storefront/internal/catalog/application"
	catalogpg "github.com/dmehra2102/sofa-storefront/internal/catalog/infrastructure/postgres"
	orderapp "github.com/dmehra2102/sofa-storefront/internal/order/application"
	orderpg "github.com/dmehra2102/sofa-storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/config"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
	"github.com/dmehra2102/sofa-storefront/pkg/logging"
	"github.com/dmehra2102/sofa-storefront/pkg/shutdown"
)

func main() {
	log := logging.NewWith(logging.Options{Level: "warn", Format: "text", Output: os.Stderr})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}
	pool, err := database.Connect(ctx, cfg.PGURL, log)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	a := &app{
		orders:   orderapp.NewService(log, orderpg.NewRepository(log, pool)),
		products: application.NewService(log, catalogpg.NewRepository(log, pool)),
		out:      os.Stdout,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
			err = errors.New(e.Message)
		}
		fmt.Fprintln(os.Stderr, err)
		pool.Close()
		os.Exit(2)
	}
}
