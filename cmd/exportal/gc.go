package main

import (
	"github.com/spf13/cobra"

	"exportal/internal/blobstore"
	"exportal/internal/config"
	"exportal/internal/store"
)

func newGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove uploaded files no entity references anymore",
		Long: "Walks the upload directory and deletes files whose reference does " +
			"not appear on any certificate, product, carousel slide or the " +
			"jumbotron. Without --apply it only reports what would be removed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, err := blobstore.NewLocalStore(cfg.BlobRoot, cfg.PublicFilesBase)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				live, err := st.LiveBlobRefs(cmd.Context())
				if err != nil {
					return err
				}

				result, err := blobs.Sweep(cmd.Context(), live, apply)
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(result)
				}

				if err := writePlain("%d live references, %d orphaned files\n", len(live), result.CandidateCount); err != nil {
					return err
				}
				if apply {
					if err := writePlain("deleted %d files (%d bytes)\n", result.DeletedCount, result.ReclaimedBytes); err != nil {
						return err
					}
				} else {
					if err := writePlain("would delete %d files (%d bytes); rerun with --apply\n", result.CandidateCount, result.ReclaimedBytes); err != nil {
						return err
					}
				}
				if result.FailedCount > 0 {
					return writePlain("failed to delete %d files\n", result.FailedCount)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "actually delete orphaned files")
	return cmd
}
