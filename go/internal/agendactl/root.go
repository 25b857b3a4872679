package agendactl

import (
	"github.com/mcdev12/streamagenda/go/clients/stream_api_client"
	"github.com/mcdev12/streamagenda/go/internal/config"
	"github.com/spf13/cobra"
)

// Execute runs the agenda authoring CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var apiURL string

	rootCmd := &cobra.Command{
		Use:           "agendactl",
		Short:         "Author livestream agendas",
		Long:          "agendactl lists, adds, reschedules and deletes the agenda items of a livestream through the stream API.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", config.NewConfigFromEnv().APIURL, "stream API base URL")

	client := func() *stream_api_client.StreamApiClient {
		return stream_api_client.NewStreamApiClient(apiURL)
	}

	rootCmd.AddCommand(
		newShowCmd(client),
		newAddCmd(client),
		newUpdateCmd(client),
		newDeleteCmd(client),
		newImportCmd(client),
	)

	return rootCmd
}
