package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gsclens/gsclens/internal/logging"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st", "auth"},
	Short:   "Show the credential state for the configured property",
	Long: `Check whether a usable Search Console credential is available.

The command probes the token file and the environment variable sources in
order, refreshing the token if it is near expiry.

Examples:
  # Show credential state
  gsclens status

  # Output as JSON
  gsclens status --json | jq '.'`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := quietLogger()
	client, _, cache, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Token.RefreshTimeout)
	defer cancel()

	state, stateErr := client.AuthState(ctx)

	if globalFlags.JSON {
		out := map[string]interface{}{
			"property": cfg.Property.SiteURL,
			"state":    state.String(),
		}
		if stateErr != nil {
			out["detail"] = stateErr.Error()
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Property:\t%s\n", cfg.Property.SiteURL)
	fmt.Fprintf(w, "Token file:\t%s\n", cfg.Token.File)
	fmt.Fprintf(w, "Credential state:\t%s\n", state.String())
	if stateErr != nil {
		fmt.Fprintf(w, "Detail:\t%s\n", stateErr.Error())
	}
	return w.Flush()
}

// quietLogger keeps command output clean unless --verbose is set
func quietLogger() *logging.Logger {
	if globalFlags.Verbose {
		return logging.NewLogger(logging.WithLevel(logging.LevelDebug))
	}
	return logging.NewLogger(logging.WithLevel(logging.LevelError))
}

func defaultDateRange(days int) (string, string) {
	end := time.Now().UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}
