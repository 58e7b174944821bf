package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-gateway/internal/config"
)

// productsCmd prints the effective product table with credentials redacted.
var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List configured products.",
	Long: `Loads the configuration the same way the server does, including the
environment overlay, and prints every product with its repository and
channels. Tokens are always shown as [REDACTED].`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "PRODUCT\tREPOSITORY\tCHANNELS\tTOKEN")

		for _, p := range settings.ProductList() {
			channels := append([]string{"stable"}, settings.Channels...)
			channels = append(channels, p.Channels...)

			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Slug(), strings.Join(channels, ","), p.Credential)
		}

		return w.Flush()
	},
}
