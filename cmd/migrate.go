package cmd

import (
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	rollback     bool
	migrationDir string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply pending goose migrations, or roll back the most recent one with --rollback`,
	Run: func(cmd *cobra.Command, args []string) {
		runMigrations()
	},
}

func init() {
	migrateCmd.Flags().BoolVarP(&rollback, "rollback", "r", false, "Roll back the most recent migration")
	migrateCmd.Flags().StringVarP(&migrationDir, "dir", "d", "db/migrations", "Directory with migration files")
}

func runMigrations() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := goose.OpenDBWithDriver("pgx", config.Database.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	goose.SetTableName("schema_migrations")

	if rollback {
		if err := goose.Down(db, migrationDir); err != nil {
			fmt.Fprintf(os.Stderr, "Rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Rollback completed")
		return
	}

	if err := goose.Up(db, migrationDir); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Migrations completed")
}
