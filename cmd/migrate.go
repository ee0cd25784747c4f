package cmd

import (
	"example.com/connectsphere/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db, readOnlyDB); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	if err := database.Migrate(db); err != nil {
		return err
	}

	log.Info().Msg("Migrations applied")
	return nil
}
