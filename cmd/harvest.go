package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weibo-harvest/internal/config"
	"weibo-harvest/internal/fetch"
	"weibo-harvest/internal/harvest"
)

// newHarvestCmd creates and configures the 'run' subcommand. It turns
// the configured keywords and detail URLs into fetch requests and
// drives them through the pipeline.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one harvest pass over the configured keywords",
		Long: `Fetches the listing API for each configured keyword and every
configured detail page URL, extracts and normalizes the posts they
carry, and persists the results to MongoDB. Failed units are routed to
the dead-letter file and never abort the pass.`,

		RunE: runHarvestCommand,
	}
	return cmd
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	requests := buildRequests(cfg)

	logger.Info("starting harvest pass",
		zap.Int("keywords", len(cfg.Source.Keywords)),
		zap.Int("detail_urls", len(cfg.Source.DetailURLs)),
	)

	summary := appInstance.Coordinator().Run(cmd.Context(), requests)

	logger.Info("harvest pass finished",
		zap.Int("units", summary.Units),
		zap.Int("persisted", summary.RecordsPersisted),
	)
	return nil
}

// buildRequests maps the configured source targets to fetch requests:
// one listing API call per keyword, one detail-page fetch per URL.
func buildRequests(cfg config.Config) []harvest.FetchRequest {
	var requests []harvest.FetchRequest
	for _, keyword := range cfg.Source.Keywords {
		requests = append(requests, harvest.FetchRequest{
			URL:     fetch.APIURL(cfg.Source.APIBase, cfg.Source.ContaineridPrefix, keyword),
			Mode:    harvest.ModeAPI,
			Keyword: keyword,
		})
	}
	for _, u := range cfg.Source.DetailURLs {
		requests = append(requests, harvest.FetchRequest{
			URL:  u,
			Mode: harvest.ModeDetailPage,
		})
	}
	return requests
}
