package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/geuse/internal/ami"
	"github.com/GoCodeAlone/geuse/internal/awsclient"
	"github.com/GoCodeAlone/geuse/internal/capacity"
	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/migration"
	"github.com/GoCodeAlone/geuse/internal/pricing"
	"github.com/GoCodeAlone/geuse/internal/resources"
	"github.com/GoCodeAlone/geuse/internal/selection"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

// env bundles the constructed collaborators every subcommand needs. Built
// once per invocation from environment/flags rather than held as package
// globals, so tests (and future concurrent invocations) don't share state.
type env struct {
	logger   *slog.Logger
	clients  *awsclient.Factory
	store    *statestore.Store
	network  *resources.Network
	compute  *resources.Compute
	fs       *resources.Filesystem
	identity *resources.Identity
	lb       *resources.LoadBalancer
	cdn      *resources.CDN
	caller   *resources.CallerIdentity
	selector *selection.Selector
	resolver *ami.Resolver
}

func newEnv(stateDirs ...string) (*env, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	stateDir := cliutil.StateDir()
	if len(stateDirs) > 0 && stateDirs[0] != "" {
		stateDir = stateDirs[0]
	}

	runner := migration.NewRunner(logger, migration.NewV1ToV2())
	store, err := statestore.New(stateDir, runner, statestore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init state store: %w", err)
	}

	clients := awsclient.NewFactory()
	resolver := ami.New(clients)
	priceSvc := pricing.New(clients)
	capacitySvc := capacity.New(clients, resolver)

	return &env{
		logger:   logger,
		clients:  clients,
		store:    store,
		network:  resources.NewNetwork(clients),
		compute:  resources.NewCompute(clients),
		fs:       resources.NewFilesystem(clients),
		identity: resources.NewIdentity(clients),
		lb:       resources.NewLoadBalancer(clients),
		cdn:      resources.NewCDN(clients),
		caller:   resources.NewCallerIdentity(clients),
		selector: selection.New(priceSvc, capacitySvc),
		resolver: resolver,
	}, nil
}
