package main

import (
	"fmt"
	"net/http"

	"github.com/cuemby/mailcore/pkg/log"
	"github.com/cuemby/mailcore/pkg/metrics"
	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics and health endpoints for a running process",
	Long: `Starts an HTTP server exposing /metrics, /health, /ready and /live.
Intended to run alongside a long-lived process embedding the store, blob
and acl packages; this binary itself registers no store components, so
/ready will report unhealthy until a caller registers "store" and
"blob" via metrics.RegisterComponent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())

		log.Info(fmt.Sprintf("serving metrics on %s", addr))
		return http.ListenAndServe(addr, nil)
	},
}

func init() {
	metricsCmd.Flags().String("addr", "127.0.0.1:9090", "Listen address")
}
