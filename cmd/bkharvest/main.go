package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bkharvest/harvester/config"
	"github.com/bkharvest/harvester/internal/usecase"
)

const usageHint = "No arguments given.  Use --menuitems_only to harvest the data or --all to update all information."

var (
	flagAll           bool
	flagMenuItemsOnly bool
	flagUpload        bool
)

var rootCmd = &cobra.Command{
	Use:          "bkharvest",
	Short:        "bkharvest collects BK restaurants, menus and items into CSV files.",
	SilenceUsage: true,
	RunE:         runHarvest,
}

func init() {
	rootCmd.Flags().BoolVar(&flagAll, "all", false, "discover stores, then harvest restaurants, menus and items")
	rootCmd.Flags().BoolVar(&flagMenuItemsOnly, "menuitems_only", false, "refresh menus for the stores in the newest restaurants file and upload them")
	rootCmd.Flags().BoolVar(&flagUpload, "upload", false, "upload the harvested files to the database (with --all)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if !flagAll && !flagMenuItemsOnly {
		fmt.Fprintln(cmd.OutOrStdout(), usageHint)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	initSlog(cfg.Server.Environment)

	ctx := cmd.Context()
	opts := usecase.HarvestOptions{Upload: flagUpload}
	if !flagAll {
		// an incremental refresh always ends in an upload
		opts.Upload = true
	}

	a, err := newApp(ctx, cfg, opts.Upload, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var report *usecase.RunReport
	if flagAll {
		report, err = a.harvest.RunAll(ctx, opts)
	} else {
		report, err = a.harvest.RefreshMenus(ctx, opts)
	}
	if report != nil {
		renderReport(cmd.OutOrStdout(), report)
	}
	return err
}
