package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-gateway/internal/config"
)

// errConfigExists is returned when init would overwrite an existing file.
var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// forceInit allows init to overwrite an existing file.
var forceInit bool

// initCmd writes a starter configuration without secrets.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file.",
	Long: `Writes a configuration file with defaults and one example product.
The token is left empty; supply it through <PRODUCT>_TOKEN at runtime.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigFilename
		}

		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s: %w", path, errConfigExists)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if err := config.Save(path, config.Sample()); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}
