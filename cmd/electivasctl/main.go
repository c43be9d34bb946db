package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"electivas/internal/config"
	"electivas/internal/database"
	"electivas/internal/repository"
	"electivas/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "electivasctl",
	Short:        "Administration CLI for elective enrollment",
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ELECTIVAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "dotenv file with database settings")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(availabilityCmd())
	rootCmd.AddCommand(periodsCmd())
}

// services is the subset of the application the CLI drives.
type services struct {
	periods service.PeriodService
	reports service.ReportService
}

func openDB() (*gorm.DB, *config.Config, error) {
	cfg, err := config.Load(viper.GetString("env-file"))
	if err != nil {
		return nil, nil, err
	}
	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, cfg, nil
}

func withServices(ctx context.Context, fn func(context.Context, services) error) error {
	db, cfg, err := openDB()
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	txManager := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	electiveRepo := repository.NewElectiveRepository(db)
	ledger := service.NewQuotaLedger(
		repository.NewQuotaRepository(db),
		electiveRepo,
		repository.NewProgramRepository(db),
		auditRepo,
		txManager,
		nil,
	)
	return fn(ctx, services{
		periods: service.NewPeriodService(repository.NewPeriodRepository(db), auditRepo, txManager, nil, service.SystemClock(loc)),
		reports: service.NewReportService(ledger, electiveRepo, repository.NewEnrollmentRepository(db)),
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db)
		},
	}
}

func availabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "availability <elective-id>",
		Short: "Show accepted seats per program for an elective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				rows, err := s.reports.ListQuotaAvailability(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Program", "Name", "Reserved", "Occupied", "Available"})
				var reserved, occupied, available int
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ProgramCode, r.ProgramName, r.Reserved, r.Occupied, r.Available})
					reserved += r.Reserved
					occupied += r.Occupied
					available += r.Available
				}
				tw.AppendFooter(table.Row{"", "Total", reserved, occupied, available})
				tw.Render()
				return nil
			})
		},
	}
}

func periodsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "periods", Short: "Manage academic periods"}
	cmd.AddCommand(periodsListCmd())
	cmd.AddCommand(periodsArchiveCmd())
	return cmd
}

func periodsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List academic periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				periods, err := s.periods.ListPeriods(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(periods)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Start", "End", "State", "Active"})
				for _, p := range periods {
					tw.AppendRow(table.Row{p.ID, p.Name, p.StartDate, p.EndDate, p.State, p.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func periodsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <period-id>",
		Short: "Close a period permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				p, err := s.periods.Archive(ctx, "", args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("archived period %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
