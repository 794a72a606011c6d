package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/store"
)

// runMigrate creates the tables and seeds directory entries from config.
func runMigrate(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, errHelp) {
		printHelp()
		return 0
	}
	if err != nil {
		printError(err.Error())
		return 1
	}

	loadEnvFiles()
	cfg, err := loadConfig(opts)
	if err != nil {
		printError(err.Error())
		return 1
	}
	closer, err := setupLogging(cfg)
	if err != nil {
		printError(err.Error())
		return 1
	}
	defer func() { _ = closer.Close() }()

	roles, profiles, err := migrate(context.Background(), cfg)
	if err != nil {
		printError(err.Error())
		return 1
	}
	printSuccess(fmt.Sprintf("schema ready on %s", cfg.Storage.Driver))
	if roles+profiles > 0 {
		printInfo(fmt.Sprintf("seeded %d roles and %d profiles", roles, profiles))
	}
	return 0
}

// migrate applies the schema and copies cfg.Directory into the store. It
// returns how many roles and profiles were written.
func migrate(ctx context.Context, cfg *config.Config) (int, int, error) {
	if !cfg.HasSQLStorage() {
		return 0, 0, errNoStorage
	}
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = st.Close() }()

	if err := st.Migrate(ctx); err != nil {
		return 0, 0, err
	}

	var roles, profiles int
	for _, userID := range sortedKeys(cfg.Directory.Roles) {
		for _, role := range cfg.Directory.Roles[userID] {
			if err := st.AssignRole(ctx, userID, role); err != nil {
				return roles, profiles, err
			}
			roles++
		}
	}
	for _, email := range sortedKeys(cfg.Directory.Profiles) {
		if err := st.UpsertProfile(ctx, email, cfg.Directory.Profiles[email]); err != nil {
			return roles, profiles, err
		}
		profiles++
	}
	return roles, profiles, nil
}

// sortedKeys returns the sorted keys of a map.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
