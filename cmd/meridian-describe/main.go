// Package main implements the meridian-describe binary: it resolves
// table schemas from the metadata store (or a raw mapping file) and
// prints the resulting catalog. It can also export and restore archives
// of the metadata store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/meridiandb/meridian/internal/config"
	"github.com/meridiandb/meridian/internal/docschema"
	"github.com/meridiandb/meridian/internal/metadata"
	"github.com/meridiandb/meridian/internal/metastore"
	"github.com/meridiandb/meridian/internal/storage"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		tableName   string
		mappingFile string
		listTables  bool
		archive     bool
		restore     string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&tableName, "table", "", "Table to describe, as schema.table or table")
	flag.StringVar(&mappingFile, "mapping", "", "Resolve a raw mapping JSON file instead of the store")
	flag.BoolVar(&listTables, "list", false, "List all tables in the metadata store")
	flag.BoolVar(&archive, "archive", false, "Export a metadata archive to the configured backend")
	flag.StringVar(&restore, "restore", "", "Restore a metadata archive by ID")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "meridian-describe - resolve and print table schemas\n\n")
		fmt.Fprintf(os.Stderr, "Usage: meridian-describe [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  meridian-describe --table doc.users\n")
		fmt.Fprintf(os.Stderr, "  meridian-describe --mapping users_mapping.json\n")
		fmt.Fprintf(os.Stderr, "  meridian-describe --list --data-dir /data/meridian\n")
		fmt.Fprintf(os.Stderr, "  meridian-describe --archive\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("meridian-describe version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	if mappingFile != "" {
		if err := describeMappingFile(mappingFile, tableName, cfg); err != nil {
			log.Fatalf("Failed to resolve mapping: %v", err)
		}
		return
	}

	store, err := metastore.Open(cfg.MetastorePath())
	if err != nil {
		log.Fatalf("Failed to open metadata store: %v", err)
	}
	defer store.Close()

	switch {
	case listTables:
		err = printTableList(ctx, store)
	case archive:
		err = exportArchive(ctx, store, cfg)
	case restore != "":
		err = restoreArchive(ctx, store, cfg, restore)
	case tableName != "":
		err = describeStoredTable(ctx, store, tableName)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// loadConfig loads configuration from file, environment, and flags.
func loadConfig(configFile, dataDir string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseRelation(name string) metadata.RelationName {
	if schema, table, found := strings.Cut(name, "."); found {
		return metadata.NewRelationName(schema, table)
	}
	return metadata.NewRelationName(metadata.DefaultSchema, name)
}

// describeMappingFile resolves a raw mapping document straight from a
// JSON file, without touching the store. The file holds either a bare
// mapping or a {"settings": ..., "mapping": ...} document.
func describeMappingFile(path, tableName string, cfg *config.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read mapping file: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse mapping file: %w", err)
	}

	mapping := doc
	var settings map[string]any
	if inner, ok := doc["mapping"].(map[string]any); ok {
		mapping = inner
		settings, _ = doc["settings"].(map[string]any)
	}

	if tableName == "" {
		tableName = strings.TrimSuffix(strings.TrimSuffix(path, ".json"), "_mapping")
	}
	relation := parseRelation(tableName)

	table, err := docschema.Resolve(relation, &docschema.IndexMetadata{
		NumberOfShards:   cfg.DefaultShards,
		NumberOfReplicas: cfg.DefaultReplicas,
		Settings:         settings,
		Mapping:          mapping,
	})
	if err != nil {
		return err
	}
	printTable(table)
	return nil
}

func describeStoredTable(ctx context.Context, store *metastore.Store, tableName string) error {
	registry := metastore.NewRegistry(store)
	table, err := registry.GetTable(ctx, parseRelation(tableName))
	if err != nil {
		return err
	}
	printTable(table)
	return nil
}

func printTableList(ctx context.Context, store *metastore.Store) error {
	stored, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, entry := range stored {
		fmt.Printf("%s\tversion %d\n", entry.Relation.FQN(), entry.Version)
	}
	return nil
}

func exportArchive(ctx context.Context, store *metastore.Store, cfg *config.Config) error {
	objects, err := openArchiveStorage(ctx, cfg)
	if err != nil {
		return err
	}
	archiver := metastore.NewArchiver(store, objects, "meridian/archive")
	id, err := archiver.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("archive %s written\n", id)
	return nil
}

func restoreArchive(ctx context.Context, store *metastore.Store, cfg *config.Config, archiveID string) error {
	objects, err := openArchiveStorage(ctx, cfg)
	if err != nil {
		return err
	}
	archiver := metastore.NewArchiver(store, objects, "meridian/archive")
	restored, err := archiver.Restore(ctx, archiveID)
	if err != nil {
		return err
	}
	fmt.Printf("restored %d tables from archive %s\n", restored, archiveID)
	return nil
}

func openArchiveStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Archive.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Archive.S3.Bucket, storage.S3Config{
			Region:   cfg.Archive.S3.Region,
			Endpoint: cfg.Archive.S3.Endpoint,
		})
	default:
		return storage.NewLocalStorage(cfg.Archive.Path)
	}
}

// printTable renders the resolved schema.
func printTable(table *docschema.Table) {
	fmt.Printf("Table: %s\n", table.Relation().FQN())
	if table.UUID() != "" {
		fmt.Printf("UUID: %s\n", table.UUID())
	}
	fmt.Printf("Shards: %d  Replicas: %s  Policy: %s  Closed: %v\n",
		table.NumberOfShards(), table.NumberOfReplicas(), table.ColumnPolicy(), table.IsClosed())
	fmt.Printf("Operations: %s\n", table.SupportedOperations())
	fmt.Println()

	fmt.Println("Columns:")
	for _, ref := range table.References() {
		base := ref.Base()
		if base.Ident.Column.IsSystemColumn() {
			continue
		}
		flags := make([]string, 0, 4)
		if !base.Nullable {
			flags = append(flags, "not null")
		}
		if base.Granularity == metadata.GranularityPartition {
			flags = append(flags, "partition")
		}
		if ref.Kind() == metadata.RefGenerated {
			flags = append(flags, "generated")
		}
		fmt.Printf("  %-30s %-28s index=%s %s\n",
			base.Ident.Column.FQN(), base.Type.Name(), base.IndexMode, strings.Join(flags, " "))
	}

	if indices := table.Indices(); len(indices) > 0 {
		fmt.Println("\nIndices:")
		idents := make([]metadata.ColumnIdent, 0, len(indices))
		for ident := range indices {
			idents = append(idents, ident)
		}
		sort.Slice(idents, func(i, j int) bool { return idents[i].FQN() < idents[j].FQN() })
		for _, ident := range idents {
			idx := indices[ident]
			sources := make([]string, len(idx.Columns))
			for i, col := range idx.Columns {
				sources[i] = col.Ident.Column.FQN()
			}
			analyzer := idx.Analyzer
			if analyzer == "" {
				analyzer = "default"
			}
			fmt.Printf("  %-30s analyzer=%-12s sources=[%s]\n",
				ident.FQN(), analyzer, strings.Join(sources, ", "))
		}
	}

	if generated := table.GeneratedColumns(); len(generated) > 0 {
		fmt.Println("\nGenerated columns:")
		for _, gen := range generated {
			fmt.Printf("  %-30s AS %s\n", gen.Ident.Column.FQN(), gen.FormattedExpression)
		}
	}

	fmt.Println()
	if pk := table.PrimaryKey(); len(pk) > 0 {
		names := make([]string, len(pk))
		for i, ident := range pk {
			names[i] = ident.FQN()
		}
		auto := ""
		if table.HasAutoGeneratedPrimaryKey() {
			auto = " (auto-generated)"
		}
		fmt.Printf("Primary key: %s%s\n", strings.Join(names, ", "), auto)
	}
	fmt.Printf("Routing column: %s\n", table.RoutingColumn().FQN())
	if table.IsPartitioned() {
		names := make([]string, len(table.PartitionedBy()))
		for i, ident := range table.PartitionedBy() {
			names[i] = ident.FQN()
		}
		fmt.Printf("Partitioned by: %s\n", strings.Join(names, ", "))
	}
}
