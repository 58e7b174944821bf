package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-gateway/internal/service/common"
)

const defaultHealthAddress = "127.0.0.1:8081"

var (
	// healthAddress of the gRPC health listener to probe.
	healthAddress string
	// healthService is the service name to check; empty checks the overall status.
	healthService string
	// healthTimeout bounds the probe.
	healthTimeout time.Duration

	// healthcheckCmd exits non-zero unless the gateway reports SERVING.
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running gateway through its gRPC health endpoint.",
		Long: `Connects to the gRPC health listener (health_addr) and exits with a
non-zero status unless the gateway reports SERVING. Suitable for container
HEALTHCHECK instructions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			address := healthAddress
			if strings.HasPrefix(address, ":") {
				address = "127.0.0.1" + address
			}

			client, err := common.Dial(cmd.Context(), address, common.WithCallTimeout(healthTimeout))
			if err != nil {
				return err
			}

			defer client.Close()

			if err = client.Probe(cmd.Context(), healthService); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "SERVING")

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	healthcheckCmd.Flags().StringVarP(&healthAddress, "address", "a", defaultHealthAddress, "gRPC health listener address")
	healthcheckCmd.Flags().StringVar(&healthService, "service", "", "service name to check (empty for overall status)")
	healthcheckCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "probe timeout")
}
