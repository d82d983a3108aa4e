package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/fintrack-server/internal/events"
	"github.com/dtroode/fintrack-server/internal/repository"
	"github.com/dtroode/fintrack-server/internal/service"
)

func repairCmd() *cobra.Command {
	var entity, owner string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Drop dangling ownership index entries",
		Long: `Remove index entries that point at missing or foreign records.

Examples:
  fintrack repair --entity budget --owner 6f1c...
  fintrack repair --entity payment --owner 6f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			kv, err := openKV(ctx, cfg)
			if err != nil {
				return err
			}
			defer kv.Close()

			// Repair publishes nothing.
			pub := events.NewDispatcher(events.NewLogSender(log), log, 1, 1)
			defer pub.Close(ctx)

			maintenance := service.NewMaintenance(map[string]service.Repairer{
				"budget":  repository.NewBudgets(kv, pub, log),
				"payment": repository.NewPayments(kv, pub, log),
			}, log)

			removed, err := maintenance.Repair(ctx, entity, owner)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d dangling %s index entries for %s\n", removed, entity, owner)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "budget or payment")
	cmd.Flags().StringVar(&owner, "owner", "", "user ID owning the index")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
