package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"beps/internal/config"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var indexName = regexp.MustCompile(`(INDEX IF NOT EXISTS )(\w+)`)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	clearData := flag.Bool("clear-data", false, "Clear all rows (keep schema)")
	schemaPath := flag.String("schema", "scripts/schema.sql", "Path to the schema DDL")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run destructive operations (--drop-tables or --clear-data) in production")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		for _, table := range tables.All() {
			if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
				log.Fatalf("Failed to drop %s: %v", table, err)
			}
		}
	}

	log.Printf("Applying schema (environment: %s, prefix: %q)", cfg.Environment, cfg.TablePrefix)
	if err := runSchema(ctx, pool, *schemaPath, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if *clearData {
		if err := clearAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("Data cleared")
		return
	}
	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	if err := seed(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Println("Seeding complete")
}

// runSchema applies the DDL file with every table and index name prefixed.
func runSchema(ctx context.Context, pool *pgxpool.Pool, path, prefix string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	ddl := string(raw)
	if prefix != "" {
		base := postgres.NewTableNames("").All()
		for _, name := range base {
			ddl = regexp.MustCompile(`\b`+name+`\b`).ReplaceAllString(ddl, prefix+name)
		}
		ddl = indexName.ReplaceAllString(ddl, "${1}"+prefix+"${2}")
	}
	_, err = pool.Exec(ctx, ddl)
	return err
}

func clearAll(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(tables.All(), ", ")+" RESTART IDENTITY CASCADE")
	return err
}

// seed inserts a small demo hierarchy, users and the private IPv4 ranges.
func seed(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		users := []struct {
			id, name, company, department, position string
			role                                    int
		}{
			{"admin", "Administrator", "BEPS", "Platform", "수석 연구원", 1},
			{"alice", "Alice", "Acme", "Sales", "과장", 5},
			{"bob", "Bob", "Acme", "Support", "Engineer (L2)", 5},
			{"carol", "Carol", "Partner Co", "Field", "", 6},
		}
		for _, u := range users {
			_, err := tx.Exec(ctx, `
				INSERT INTO `+tables.Users+` (id, name, company, department, position, role_id)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
				ON CONFLICT (id) DO NOTHING`,
				u.id, u.name, u.company, u.department, u.position, u.role)
			if err != nil {
				return fmt.Errorf("insert user %s: %w", u.id, err)
			}
		}

		var channelID, categoryID, folderID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO `+tables.Channels+` (name) VALUES ($1) RETURNING id`,
			"Onboarding").Scan(&channelID); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO `+tables.Folders+` (name, channel_id) VALUES ($1, $2) RETURNING id`,
			"Basics", channelID).Scan(&categoryID); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO `+tables.Folders+` (name, channel_id, parent_id) VALUES ($1, $2, $3) RETURNING id`,
			"Week 1", channelID, categoryID).Scan(&folderID); err != nil {
			return fmt.Errorf("insert folder: %w", err)
		}
		for _, name := range []string{"01 Welcome", "02 Tools", "03 Safety"} {
			if _, err := tx.Exec(ctx,
				`INSERT INTO `+tables.Pages+` (name, folder_id) VALUES ($1, $2)`,
				name, folderID); err != nil {
				return fmt.Errorf("insert page %s: %w", name, err)
			}
		}

		ranges := [][3]string{
			{"10.0.0.0", "10.255.255.255", "private-a"},
			{"172.16.0.0", "172.31.255.255", "private-b"},
			{"192.168.0.0", "192.168.255.255", "private-c"},
		}
		for _, r := range ranges {
			if _, err := tx.Exec(ctx,
				`INSERT INTO `+tables.IPRanges+` (start_ip, end_ip, label) VALUES ($1, $2, $3)`,
				r[0], r[1], r[2]); err != nil {
				return fmt.Errorf("insert ip range %s: %w", r[2], err)
			}
		}
		return nil
	})
}
