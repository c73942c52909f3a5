package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// sitemapsCmd represents the sitemaps command
var sitemapsCmd = &cobra.Command{
	Use:     "sitemaps",
	Aliases: []string{"sm", "sitemap"},
	Short:   "List, submit or delete sitemaps",
	Long: `Manage sitemaps for the configured property.

Examples:
  # List submitted sitemaps
  gsclens sitemaps

  # Submit a sitemap
  gsclens sitemaps submit https://example.com/sitemap.xml

  # Delete a sitemap
  gsclens sitemaps delete https://example.com/sitemap.xml`,
	RunE: runListSitemaps,
}

var sitemapsSubmitCmd = &cobra.Command{
	Use:   "submit <sitemap-url>",
	Short: "Submit a sitemap to Search Console",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmitSitemap,
}

var sitemapsDeleteCmd = &cobra.Command{
	Use:   "delete <sitemap-url>",
	Short: "Delete a sitemap from Search Console",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteSitemap,
}

func init() {
	sitemapsCmd.AddCommand(sitemapsSubmitCmd)
	sitemapsCmd.AddCommand(sitemapsDeleteCmd)
	RootCmd.AddCommand(sitemapsCmd)
}

func runListSitemaps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, _, cache, err := buildClient(cfg, quietLogger())
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	sitemaps, err := client.ListSitemaps(context.Background())
	if err != nil {
		return fmt.Errorf("list sitemaps failed: %w", err)
	}

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(sitemaps)
	}

	if len(sitemaps) == 0 {
		fmt.Println("No sitemaps submitted.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "path\tlast submitted\tpending\terrors\twarnings")
	for _, sm := range sitemaps {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
			sm.Path, sm.LastSubmitted, sm.IsPending, sm.Errors, sm.Warnings)
	}
	return w.Flush()
}

func runSubmitSitemap(cmd *cobra.Command, args []string) error {
	return sitemapMutation(args[0], "submitted", func(ctx context.Context, client sitemapClient, url string) (bool, error) {
		return client.SubmitSitemap(ctx, url)
	})
}

func runDeleteSitemap(cmd *cobra.Command, args []string) error {
	return sitemapMutation(args[0], "deleted", func(ctx context.Context, client sitemapClient, url string) (bool, error) {
		return client.DeleteSitemap(ctx, url)
	})
}

type sitemapClient interface {
	SubmitSitemap(ctx context.Context, sitemapURL string) (bool, error)
	DeleteSitemap(ctx context.Context, sitemapURL string) (bool, error)
}

func sitemapMutation(url, verb string, call func(context.Context, sitemapClient, string) (bool, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, _, cache, err := buildClient(cfg, quietLogger())
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	ok, err := call(context.Background(), client, url)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sitemap %s was not %s", url, verb)
	}
	fmt.Printf("Sitemap %s %s.\n", url, verb)
	return nil
}
