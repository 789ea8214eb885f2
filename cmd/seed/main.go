package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"knowledgestack/internal/app"
	"knowledgestack/internal/config"
	"knowledgestack/internal/repository/postgres"
	"knowledgestack/internal/search"
	"knowledgestack/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	clearData := flag.Bool("clear-data", false, "Delete all rows but keep the schema")
	fixture := flag.String("fixture", seed.DefaultFixture, "Fixture to load: a built-in name or a YAML file path")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.IsProd() && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	switch {
	case *clearData:
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s, fixture: %s)", cfg.Environment, cfg.TablePrefix, *fixture)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropAll(ctx, pool, tables, cfg.TablePrefix); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.RunSchema(ctx, pool, cfg.TablePrefix, logger); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	f, err := seed.Load(*fixture)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	opts := app.Options{}
	if cfg.MeiliURL != "" {
		opts.Meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		defer opts.Meili.Close()
	}
	stack := app.New(pool, tables, opts, logger)

	res, err := seed.NewSeeder(stack.OrgService, stack.Knowledge, logger).Apply(ctx, f)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	// Index writes are asynchronous; rebuild synchronously so search works right away
	if opts.Meili != nil {
		if n, err := stack.Search.Reindex(ctx, res.Org.ID); err != nil {
			log.Printf("⚠️  Search index not rebuilt: %v", err)
		} else {
			log.Printf("🔎 Indexed %d search records", n)
		}
	}

	log.Printf("🎉 Seeding complete! Organization %q: %d users, %d departments, %d collections, %d documents, %d tags, %d tiles",
		res.Org.Slug, res.Users, res.Departments, res.Collections, res.Documents, res.Tags, res.Tiles)
}
