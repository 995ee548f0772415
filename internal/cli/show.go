package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type indicatorJSON struct {
	Name        string `json:"name"`
	Value       int    `json:"value"`
	Description string `json:"description"`
	Band        string `json:"band"`
}

type showJSON struct {
	LastUpdated string          `json:"lastUpdated"`
	Indicators  []indicatorJSON `json:"indicators"`
}

func newShowCommand(bootstrap func(*cobra.Command) (*App, error)) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					app.Logger.Warn("close dependencies", zap.Error(err))
				}
			}()

			if !asJSON {
				return app.Controller.Run(cmd.Context(), NewTerminalPresenter(cmd.OutOrStdout(), nil))
			}
			view, err := app.Controller.Load(cmd.Context())
			if err != nil {
				return err
			}
			out := showJSON{LastUpdated: view.LastUpdated, Indicators: make([]indicatorJSON, 0, len(view.Indicators))}
			for _, ind := range view.Indicators {
				out.Indicators = append(out.Indicators, indicatorJSON{
					Name:        ind.Name,
					Value:       ind.Value,
					Description: ind.Description,
					Band:        ind.Band.String(),
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}
