package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/client"
	"github.com/sagarc03/storegate/config"
	"github.com/sagarc03/storegate/entitystore"
	gatehttp "github.com/sagarc03/storegate/http"
	"github.com/sagarc03/storegate/objectstore"
)

// need selects which stores a command opens.
type need struct {
	objects  bool
	entities bool
}

// localStack holds the stores opened for one command.
type localStack struct {
	service *storegate.Service
	objects storegate.ObjectStore
	cleanup func()
}

func openLocal(ctx context.Context, cfg *config.Config, n need) (*localStack, error) {
	var (
		objects  storegate.ObjectStore
		entities storegate.EntityStore
		cleanups []func()
	)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if n.objects {
		store, closeStore, err := objectstore.Open(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("open object store: %w", err)
		}
		objects = store
		cleanups = append(cleanups, closeStore)
		slog.Debug("opened object store", "backend", cfg.ObjectStore.Backend)
	}

	if n.entities {
		store, closeStore, err := entitystore.Open(ctx, cfg.EntityStore)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("open entity store: %w", err)
		}
		entities = store
		cleanups = append(cleanups, closeStore)
		slog.Debug("opened entity store", "backend", cfg.EntityStore.Backend, "table", cfg.EntityStore.Table)
	}

	service, err := storegate.NewService(objects, entities, cfg.Service.Storegate())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &localStack{service: service, objects: objects, cleanup: cleanup}, nil
}

// serviceFor returns the gateway service a CLI command talks to: a remote
// gateway when --endpoint is set, otherwise the configured stores.
func serviceFor(cmd *cobra.Command, n need) (gatehttp.Service, func(), error) {
	if endpoint != "" {
		c, err := client.New(endpoint)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}

	ctx := cmd.Context()
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	stack, err := openLocal(ctx, cfg, n)
	if err != nil {
		return nil, nil, err
	}

	return stack.service, stack.cleanup, nil
}
