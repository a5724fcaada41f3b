// Command hcatalog serves and browses a product catalog whose filters live in
// the URL query.
//
// Command hcatalog 提供并浏览筛选条件保存在URL查询串中的商品目录。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hcatalog",
		Short: "Query-driven product catalog fetch and pagination engine",
		Long: `hcatalog keeps product listing filters in the URL query and serves
the matching pages through a deduplicating fetch cache.

Commands:
  serve     run the catalog HTTP front end against a product API
  mock-api  run an in-memory product API for development
  browse    load a query from the terminal`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		mockAPICmd(),
		browseCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
