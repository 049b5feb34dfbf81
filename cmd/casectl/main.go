// Command casectl drives the casework API from a terminal: reviewing case
// merges and working the bed table of a site.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"casework-backend/config"
	"casework-backend/internal/client"
	"casework-backend/internal/logging"
)

type globalFlags struct {
	configPath string
	server     string
	userID     string
	locationID string
	timezone   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Review case merges and manage shelter beds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("CONFIG_PATH"), "Config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&flags.server, "server", "", "Backend base URL (overrides backend.base_url)")
	root.PersistentFlags().StringVarP(&flags.userID, "user", "u", os.Getenv("CASEWORK_USER_ID"), "Acting user id sent as x-user-id")
	root.PersistentFlags().StringVar(&flags.locationID, "location", os.Getenv("CASEWORK_LOCATION_ID"), "Active location id sent as x-location-id")
	root.PersistentFlags().StringVar(&flags.timezone, "tz", "", "Timezone for dates and checkout annotations (overrides server.timezone)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newCasesCmd(flags), newBedsCmd(flags))
	return root
}

// connect builds the API client from the config file and flag overrides.
func (f *globalFlags) connect() (*client.Client, *time.Location, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", f.configPath, err)
		}
		cfg = loaded
	}
	if f.server != "" {
		cfg.Backend.BaseURL = f.server
	}
	if f.timezone != "" {
		cfg.Server.Timezone = f.timezone
	}
	session := client.Session{UserID: cfg.Backend.UserID, LocationID: cfg.Backend.LocationID}
	if f.userID != "" {
		session.UserID = f.userID
	}
	if f.locationID != "" {
		session.LocationID = f.locationID
	}

	logger := zap.NewNop()
	if f.verbose {
		l, err := logging.New("debug", "console", "casectl")
		if err != nil {
			return nil, nil, err
		}
		logger = l
	}
	return client.New(cfg.Backend, session, logger), cfg.Server.Location(), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
