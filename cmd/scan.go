package cmd

import (
	"fmt"
	"path/filepath"

	"mediatag/config"
	"mediatag/core/catalog"
	"mediatag/core/timestamp"
	"mediatag/logger"
	"mediatag/repository"

	"github.com/spf13/cobra"
)

var scanExecute bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Resolve timestamps and list the catalog order",
	Long: `Scan the media folder, resolve every item's capture instant, infer missing
timezone offsets from neighboring items and print the resulting catalog
order. Duplicate-filename groups are listed; with --execute they are
resolved by forking each member into a versioned identity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		storePath := filepath.Join(cfg.MediaDir, cfg.StoreFilename)
		repo := repository.NewFileCollectionRepository(storePath, cfg.BackupDir)
		resolver := timestamp.NewResolver(timestamp.NewFFprobeProber(cfg.FFprobePath, cfg.ProbeTimeout))

		cat, err := catalog.Open(cfg.MediaDir, repo, resolver)
		if err != nil {
			return err
		}

		for _, item := range cat.Items() {
			rec := cat.Record(item.Key())
			when := "unresolved"
			if rec.CreationDateTime != "" {
				when = rec.CreationDateTime
				switch {
				case rec.LocalTimeZone != "":
					when += " " + rec.LocalTimeZone
				case rec.LocalTimeZoneInferred != "":
					when += " " + rec.LocalTimeZoneInferred + " (inferred)"
				}
			}
			if rec.CreationTimeManual != "" {
				when = rec.CreationTimeManual + " (manual)"
			}
			fmt.Printf("%-40s %s\n", item.Key(), when)
		}

		groups := cat.PendingDuplicates()
		if len(groups) == 0 {
			return nil
		}

		fmt.Printf("\n%d duplicate filename group(s):\n", len(groups))
		for _, g := range groups {
			kind := "different captures, same name"
			if g.SameEpoch {
				kind = "likely true duplicate"
			}
			fmt.Printf("  %s (%s)\n", g.Name, kind)
			for _, m := range g.Members {
				fmt.Printf("    %s\n", m.Path)
			}
		}

		if !scanExecute {
			fmt.Println("\n[dry run] rerun with --execute to fork duplicate groups")
			return nil
		}

		for _, g := range groups {
			if err := cat.ApplyDuplicateGroup(g); err != nil {
				fmt.Printf("  group %s failed: %v\n", g.Name, err)
				continue
			}
			fmt.Printf("  group %s resolved\n", g.Name)
		}
		return cat.Save()
	},
}

func init() {
	scanCmd.Flags().BoolVarP(&scanExecute, "execute", "x", false, "apply duplicate group renames (default is dry run)")
	rootCmd.AddCommand(scanCmd)
}
