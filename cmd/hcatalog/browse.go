package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Humphrey-He/hcatalog/configs"
	"github.com/Humphrey-He/hcatalog/pkg/cache"
	"github.com/Humphrey-He/hcatalog/pkg/catalog"
	"github.com/Humphrey-He/hcatalog/pkg/client"
	cerrors "github.com/Humphrey-He/hcatalog/pkg/errors"
	"github.com/Humphrey-He/hcatalog/pkg/pagination"
)

func browseCmd() *cobra.Command {
	var (
		configFile string
		baseURL    string
		query      string
		pages      int
		asJSON     bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Load a catalog query from the terminal",
		Long: `Load the products matching a URL query, optionally loading more
pages, and print them with the pagination bar.

Examples:
  hcatalog browse --base-url http://localhost:3000 --query "category=Hat&_sort=price&_order=asc"
  hcatalog browse --config configs/hcatalog.yaml --query "q=dragon" --pages 3 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := browseConfig(configFile, baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runBrowse(ctx, cmd.OutOrStdout(), config, query, pages, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (yaml or json)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Product API origin (overrides api.base_url)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "URL query to load")
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "Number of pages to load")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the view as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")

	return cmd
}

// browseConfig loads the config the way serve does; --base-url wins over
// both the file and the environment.
func browseConfig(configFile, baseURL string) (*configs.Config, error) {
	if baseURL == "" {
		vc, err := configs.NewViperConfig(configFile)
		if err != nil {
			return nil, err
		}
		return vc.Get(), nil
	}

	config := configs.DefaultConfig()
	if configFile != "" {
		var err error
		if config, err = configs.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	config.API.BaseURL = baseURL
	return config, config.Validate()
}

func runBrowse(ctx context.Context, out io.Writer, config *configs.Config, query string, pages int, asJSON bool) error {
	cl, err := client.New(config.API.BaseURL, client.WithTimeout(config.API.Timeout))
	if err != nil {
		return err
	}
	fc, err := cache.NewWithOptions(cl, config.CacheOptions()...)
	if err != nil {
		return err
	}
	defer fc.Close()

	session := catalog.NewSession(query, fc,
		catalog.WithFacets(cl),
		catalog.WithDefaultLimit(config.Query.DefaultLimit),
	)
	defer session.Close()

	view, err := session.View(ctx)
	if err != nil {
		return err
	}
	for i := 1; i < pages && view.HasNextPage && view.Err == nil; i++ {
		// 续页失败记录在视图中
		if _, err := session.LoadMore(ctx); err != nil && (ctx.Err() != nil || cerrors.IsClosed(err)) {
			return err
		}
		view = session.Snapshot(ctx)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	printView(out, view)
	return nil
}

func printView(out io.Writer, v catalog.View) {
	fmt.Fprintf(out, "?%s\n\n", v.Query)
	if v.Error != "" {
		fmt.Fprintf(out, "error: %s (retryable: %v)\n", v.Error, v.Retryable)
		return
	}
	if v.Empty {
		fmt.Fprintln(out, "no products match")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tTIER\tTHEME\tPRICE")
	for _, p := range v.Products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Category, p.Tier, p.Theme,
			strconv.FormatFloat(p.Price, 'f', 2, 64))
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d of %d products", len(v.Products), v.Total)
	if v.HasNextPage {
		fmt.Fprint(out, ", more available")
	}
	fmt.Fprintln(out)
	if v.Pagination != nil {
		fmt.Fprintln(out, paginationBar(*v.Pagination))
	}
}

// paginationBar renders e.g. "< 1 ... 4 [5] 6 ... 10 >".
func paginationBar(v pagination.View) string {
	parts := make([]string, 0, len(v.Items)+2)
	if v.HasPrev {
		parts = append(parts, "<")
	}
	for _, item := range v.Items {
		if !item.Ellipsis && item.Page == v.Current {
			parts = append(parts, "["+item.String()+"]")
			continue
		}
		parts = append(parts, item.String())
	}
	if v.HasNext {
		parts = append(parts, ">")
	}
	return strings.Join(parts, " ")
}
