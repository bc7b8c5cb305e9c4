package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"orcid/internal/orcid"
	"orcid/internal/orcid/remote"
	"orcid/internal/services/profilerequest"
	"orcid/internal/storage/postgres"

	"github.com/spf13/cobra"
)

func newSubmitCmd(root *rootOptions) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a user's pending profile request to ORCID",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user-id must be positive")
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := root.logger()
			ctx := cmd.Context()

			storage, err := postgres.New(ctx, cfg.DSN, log)
			if err != nil {
				return err
			}
			defer storage.Close()

			gateway, err := remote.NewProfileCreationService(log, orcid.NewProvider(cfg.ORCID), &http.Client{Timeout: cfg.ORCID.Timeout})
			if err != nil {
				return err
			}

			svc := profilerequest.New(log, storage, storage, storage, gateway)

			req, ok, err := svc.SubmitForUser(ctx, userID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("profile request was not submitted: %v", req.Errors.Full())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(req)
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 0, "id of the user whose request to submit")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
