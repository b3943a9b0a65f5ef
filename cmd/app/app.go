package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/DRSN-tech/wine-search/internal/app"
	config "github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//	@title			Wine Search API
//	@version		1.0
//	@description	Нормализация винного каталога, индексация эмбеддингов и семантический поиск
//	@BasePath		/
func main() {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	log := logger.NewSlogLogger()
	if err := newRootCmd(log).Execute(); err != nil {
		log.Errorf(err, "command failed")
		os.Exit(1)
	}
}

func newRootCmd(log logger.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "wine-search",
		Short:         "Wine catalog semantic search service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), log)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run HTTP, gRPC health and MCP servers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), log)
			},
		},
		&cobra.Command{
			Use:   "text-data",
			Short: "Print normalized catalog records",
			RunE: withApp(log, func(ctx context.Context, uc usecase.CatalogUC) (any, error) {
				return uc.TextData(ctx)
			}),
		},
		&cobra.Command{
			Use:   "insert",
			Short: "Normalize, embed and upsert the catalog",
			RunE: withApp(log, func(ctx context.Context, uc usecase.CatalogUC) (any, error) {
				return uc.Insert(ctx)
			}),
		},
		newQueryCmd(log),
	)

	return root
}

func newQueryCmd(log logger.Logger) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the index",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default from QUERY_DEFAULT_TOP_K)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var q string
		if len(args) > 0 {
			q = args[0]
		}
		return withApp(log, func(ctx context.Context, uc usecase.CatalogUC) (any, error) {
			return uc.Query(ctx, usecase.NewQueryReq(q, topK))
		})(cmd, args)
	}

	return cmd
}

func serve(ctx context.Context, log logger.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return err
	}

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}

// withApp поднимает приложение без серверов, выполняет действие и печатает результат в JSON
func withApp(log logger.Logger, action func(context.Context, usecase.CatalogUC) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(log)
		if err != nil {
			return err
		}

		application, err := app.NewApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := application.Close(closeCtx); err != nil {
				log.Warnf("shutdown: %v", err)
			}
		}()

		res, err := action(ctx, application.CatalogUC())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
}
