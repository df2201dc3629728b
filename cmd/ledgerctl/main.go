package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/logger"
	"inventoryledger/backend/internal/service"
	"inventoryledger/backend/internal/store"
	pgstore "inventoryledger/backend/internal/store/postgres"
)

type repoKey struct{}

// opener returns a repository for the given database URL and a func that
// releases it.
type opener func(ctx context.Context, databaseURL string) (store.Repository, func() error, error)

func openPostgres(ctx context.Context, databaseURL string) (store.Repository, func() error, error) {
	pg, err := pgstore.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pg, pg.Close, nil
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"LEDGER_DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	zlog, err := logger.New(logger.DefaultConfig())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := newApp(openPostgres, os.Stdout, zlog).Run(os.Args); err != nil {
		zlog.Fatal("ledgerctl failed", zap.Error(err))
	}
}

func newApp(open opener, out io.Writer, zlog *zap.Logger) *cli.App {
	var closeRepo func() error

	withRepo := func(c *cli.Context) error {
		repo, closeFn, err := open(c.Context, c.String("db-url"))
		if err != nil {
			return err
		}
		closeRepo = closeFn
		c.Context = context.WithValue(c.Context, repoKey{}, repo)
		return nil
	}
	release := func(*cli.Context) error {
		if closeRepo == nil {
			return nil
		}
		return closeRepo()
	}

	serviceFor := func(c *cli.Context) (*service.Service, context.Context, error) {
		taxRate, err := decimal.NewFromString(c.String("tax-rate"))
		if err != nil {
			return nil, nil, fmt.Errorf("--tax-rate: %w", err)
		}
		repo := c.Context.Value(repoKey{}).(store.Repository)
		svc := service.New(repo, nil, service.Options{
			TaxRatePercent: taxRate,
			Logger:         zlog,
		})
		ctx := service.WithActor(c.Context, domain.Actor{Username: "ledgerctl", Role: domain.RoleSystem})
		return svc, ctx, nil
	}

	return &cli.App{
		Name:      "ledgerctl",
		Usage:     "Operator tooling for the inventory ledger",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tax-rate",
				Usage:   "Flat sales tax percent",
				Value:   "0",
				EnvVars: []string{"LEDGER_TAX_RATE_PERCENT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply the ledger schema to the database",
				Flags: []cli.Flag{newDBURLFlag()},
				Action: func(c *cli.Context) error {
					pg, err := pgstore.New(c.Context, c.String("db-url"))
					if err != nil {
						return fmt.Errorf("failed to connect to database: %w", err)
					}
					defer pg.Close()
					if err := pg.Migrate(c.Context); err != nil {
						return err
					}
					zlog.Info("schema applied")
					return nil
				},
			},
			{
				Name:  "feasibility",
				Usage: "Feasibility study tooling",
				Subcommands: []*cli.Command{
					{
						Name:   "inventory",
						Usage:  "Build today's study over current inventory",
						Flags:  []cli.Flag{newDBURLFlag()},
						Before: withRepo,
						After:  release,
						Action: func(c *cli.Context) error {
							svc, ctx, err := serviceFor(c)
							if err != nil {
								return err
							}
							study, err := svc.BuildFeasibilityStudy(ctx, domain.FeasibilityBuildRequest{
								SourceType: domain.FeasibilitySourceCurrentInventory,
							})
							if err != nil {
								return err
							}
							return printJSON(c.App.Writer, study.Rounded(2))
						},
					},
					{
						Name:  "purchase-order",
						Usage: "Build the study for a received purchase order",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "id", Usage: "Purchase order id", Required: true},
						},
						Before: withRepo,
						After:  release,
						Action: func(c *cli.Context) error {
							svc, ctx, err := serviceFor(c)
							if err != nil {
								return err
							}
							study, err := svc.BuildFeasibilityStudy(ctx, domain.FeasibilityBuildRequest{
								SourceType:      domain.FeasibilitySourcePurchaseOrder,
								PurchaseOrderID: c.String("id"),
							})
							if err != nil {
								return err
							}
							return printJSON(c.App.Writer, study.Rounded(2))
						},
					},
				},
			},
			{
				Name:  "shift",
				Usage: "Cashier shift tooling",
				Subcommands: []*cli.Command{
					{
						Name:  "close",
						Usage: "Close a shift left open and reconcile its cash drawer",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "id", Usage: "Shift id", Required: true},
							&cli.StringFlag{Name: "counted", Usage: "Cash counted in the drawer", Required: true},
						},
						Before: withRepo,
						After:  release,
						Action: func(c *cli.Context) error {
							counted, err := decimal.NewFromString(c.String("counted"))
							if err != nil {
								return fmt.Errorf("--counted: %w", err)
							}
							svc, ctx, err := serviceFor(c)
							if err != nil {
								return err
							}
							resp, err := svc.CloseShift(ctx, c.String("id"), counted)
							if err != nil {
								return err
							}
							return printJSON(c.App.Writer, resp)
						},
					},
				},
			},
			{
				Name:  "stock",
				Usage: "Stock tooling",
				Subcommands: []*cli.Command{
					{
						Name:  "adjust",
						Usage: "Apply a manual stock correction to one warehouse",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "product", Required: true},
							&cli.StringFlag{Name: "warehouse", Required: true},
							&cli.IntFlag{Name: "delta", Required: true},
							&cli.StringFlag{Name: "reason", Value: "ledgerctl adjustment"},
						},
						Before: withRepo,
						After:  release,
						Action: func(c *cli.Context) error {
							svc, ctx, err := serviceFor(c)
							if err != nil {
								return err
							}
							level, err := svc.AdjustStock(ctx, domain.StockAdjustmentRequest{
								ProductID:   c.String("product"),
								WarehouseID: c.String("warehouse"),
								Delta:       c.Int("delta"),
								Reason:      c.String("reason"),
							})
							if err != nil {
								return err
							}
							return printJSON(c.App.Writer, level)
						},
					},
				},
			},
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
