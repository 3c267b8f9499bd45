package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/FoxxDev-Collab/controlgraph/internal/adapters/db/sqlite"
	httpadapter "github.com/FoxxDev-Collab/controlgraph/internal/adapters/http"
	rpcadapter "github.com/FoxxDev-Collab/controlgraph/internal/adapters/rpcjson"
	"github.com/FoxxDev-Collab/controlgraph/internal/application"
	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "controlgraph",
		Usage: "Security control catalog server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			importCommand(),
			catalogsCommand(),
			groupsCommand(),
			controlsCommand(),
			configCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, ":8080", "/tmp/controlgraph.sock", "controlgraph.db")
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Value: "/tmp/controlgraph.sock", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Value: "controlgraph.db", Usage: "SQLite database path"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("addr"), c.String("rpc-socket"), c.String("db-path"))
		},
	}
}

func runServer(ctx context.Context, addr, rpcSocket, dbPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db, logger); err != nil {
		return err
	}

	repo := sqliteadapter.NewCatalogRepository(db)
	service := application.NewCatalogService(repo, logger)

	router := httpadapter.NewRouter(service, logger)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(rpcSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info("json-rpc listening", "socket", rpcSocket)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a catalog document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "path to the catalog JSON document"},
			&cli.StringFlag{Name: "type", Value: "catalog", Usage: "document type tag"},
			&cli.StringFlag{Name: "db-path", Usage: "import into a local database instead of a running server"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var out domain.ImportResult
			if c.IsSet("db-path") {
				result, err := runLocalImport(ctx, c.String("db-path"), c.String("file"), c.String("type"))
				if err != nil {
					return err
				}
				out = result
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := doImport(ctx, cfg, c.String("file"), c.String("type"), &out); err != nil {
					return err
				}
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printImportResult(out)
			return nil
		},
	}
}

func runLocalImport(ctx context.Context, dbPath, file, typeTag string) (domain.ImportResult, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return domain.ImportResult{}, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return domain.ImportResult{}, err
	}
	if err := sqliteadapter.RunMigrations(ctx, db, logger); err != nil {
		return domain.ImportResult{}, err
	}
	repo := sqliteadapter.NewCatalogRepository(db)
	service := application.NewCatalogService(repo, logger)
	return service.Ingest(ctx, data, typeTag)
}

func catalogsCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalogs",
		Usage: "Catalog commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List imported catalogs",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []catalogSummaryOut
					if err := doCatalogsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCatalogs(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one catalog, shallow or paginated",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.IntFlag{Name: "page", Usage: "page of groups; omit for the shallow view"},
					&cli.IntFlag{Name: "limit", Value: 10},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if !c.IsSet("page") {
						var out catalogSummaryOut
						if err := doCatalogGet(ctx, cfg, c.String("id"), &out); err != nil {
							return err
						}
						if c.Bool("json") {
							return printJSON(out)
						}
						printCatalogSummary(out)
						return nil
					}
					var out catalogPageOut
					if err := doCatalogGetPage(ctx, cfg, c.String("id"), int(c.Int("page")), int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCatalogPage(out)
					return nil
				},
			},
		},
	}
}

func groupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Group commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show a group with a page of its controls",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "catalog", Usage: "catalog UUID to disambiguate repeated group ids"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: 10},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out groupPageOut
					if err := doGroupGet(ctx, cfg, c.String("catalog"), c.String("id"), int(c.Int("page")), int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printGroupPage(out)
					return nil
				},
			},
		},
	}
}

func controlsCommand() *cli.Command {
	return &cli.Command{
		Name:  "controls",
		Usage: "Control commands",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show one control with parts, parameters and enhancements",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out controlDetailOut
					if err := doControlGet(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printControlDetail(out)
					return nil
				},
			},
			{
				Name:  "related",
				Usage: "List controls linked as related",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []controlRowOut
					if err := doControlRelated(ctx, cfg, c.String("id"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printControlRows(out)
					return nil
				},
			},
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Set CLI transport settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Usage: "HTTP server base URL"},
					&cli.StringFlag{Name: "socket", Usage: "unix socket path"},
					&cli.IntFlag{Name: "dial-timeout", Usage: "socket dial timeout in seconds"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if c.IsSet("transport") {
						cfg.Transport = c.String("transport")
					}
					if c.IsSet("server") {
						cfg.Server = c.String("server")
					}
					if c.IsSet("socket") {
						cfg.Socket = c.String("socket")
					}
					if c.IsSet("dial-timeout") {
						cfg.DialTimeout = int(c.Int("dial-timeout"))
					}
					return saveConfig(cfg)
				},
			},
			{
				Name:  "show",
				Usage: "Show CLI transport settings",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					printKV([][2]string{
						{"transport", cfg.Transport},
						{"server", cfg.Server},
						{"socket", cfg.Socket},
					})
					return nil
				},
			},
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
