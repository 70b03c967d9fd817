/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	reqContext "context"
	"os"
	"os/signal"
	"syscall"
	"time"

	chmetrics "github.com/hyperledger/fabric-rest-gateway/pkg/client/channel/metrics"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/logging"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics/disabled"
	metricsprom "github.com/hyperledger/fabric-rest-gateway/pkg/common/metrics/prometheus"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/core"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/config/server"
	fabImpl "github.com/hyperledger/fabric-rest-gateway/pkg/fab"
	"github.com/hyperledger/fabric-rest-gateway/pkg/gateway"
	"github.com/hyperledger/fabric-rest-gateway/pkg/rest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix       = "FABRIC_GATEWAY"
	configFlag      = "config"
	listenFlag      = "listen-address"
	shutdownTimeout = 30 * time.Second
)

var logger = logging.NewLogger("fabgw/cmd")

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	listenFlag: "server.listenAddress",
}

func newStartCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Starts the gateway.",
		Long:  `Starts serving the REST API until SIGINT or SIGTERM is received.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("trailing args detected")
			}
			cmd.SilenceUsage = true

			backends, err := loadBackends(v.GetString(configFlag), cmd.Flags())
			if err != nil {
				return err
			}
			srv, registry, err := newGateway(backends...)
			if err != nil {
				return err
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigs)
			return serve(srv, registry, sigs)
		},
	}

	flags := cmd.Flags()
	flags.StringP(configFlag, "c", "", "Path of the network and server configuration file (env "+envPrefix+"_CONFIG)")
	flags.String(listenFlag, "", "Address the REST API listens on, overriding server.listenAddress")
	if err := v.BindPFlag(configFlag, flags.Lookup(configFlag)); err != nil {
		panic(err)
	}
	return cmd
}

// loadBackends reads the configuration file; flags set on the command line
// take precedence over it
func loadBackends(path string, flags *pflag.FlagSet) ([]core.ConfigBackend, error) {
	if path == "" {
		return nil, errors.Errorf("a configuration file is required, use --%s or %s_CONFIG", configFlag, envPrefix)
	}

	backends, err := config.FromFile(path)()
	if err != nil {
		return nil, errors.WithMessage(err, "loading configuration failed")
	}

	overrides := viper.New()
	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := overrides.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "binding flag %s failed", flag)
			}
		}
	}
	return append([]core.ConfigBackend{&flagBackend{overrides}}, backends...), nil
}

type flagBackend struct {
	v *viper.Viper
}

func (b *flagBackend) Lookup(key string) (interface{}, bool) {
	value := b.v.Get(key)
	return value, value != nil
}

// newGateway wires the gateways of every configured organization behind the
// REST server
func newGateway(backends ...core.ConfigBackend) (*rest.Server, *gateway.Registry, error) {
	cfg, err := server.ConfigFromBackend(backends...)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "server configuration load failed")
	}
	logging.InitializeZap(cfg.Logging.Format, nil)

	endpointConfig, err := fabImpl.ConfigFromBackend(backends...)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "network configuration load failed")
	}

	var provider metrics.Provider = &disabled.Provider{}
	var restOpts []rest.Option
	if cfg.Metrics.Provider == server.PrometheusProvider {
		reg := prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		provider = &metricsprom.Provider{Registerer: reg}
		restOpts = append(restOpts, rest.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	opts := []gateway.Option{
		gateway.WithAdmin(cfg.Gateway.Admin),
		gateway.WithMetrics(chmetrics.NewClientMetrics(provider)),
	}
	if cfg.Gateway.Retry.Attempts > 0 {
		opts = append(opts, gateway.WithRetry(cfg.Gateway.Retry))
	}
	registry := gateway.NewRegistry(endpointConfig, cfg.Gateway.User, opts...)

	srv, err := rest.New(registry, cfg.Server, restOpts...)
	if err != nil {
		registry.Close()
		return nil, nil, errors.WithMessage(err, "creating REST server failed")
	}

	logger.Infof("Gateway configured for organization [%s] acting as [%s]", endpointConfig.DefaultOrganization(), cfg.Gateway.User)
	return srv, registry, nil
}

// serve runs the server until it fails or a signal arrives. In-flight
// requests get shutdownTimeout to finish, then pending commit listeners are
// disconnected.
func serve(srv *rest.Server, registry *gateway.Registry, sigs <-chan os.Signal) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		registry.Close()
		return err
	case sig := <-sigs:
		logger.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Stop(ctx)
	registry.Close()
	if err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return <-serveErr
}
