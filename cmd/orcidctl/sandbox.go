package main

import (
	"encoding/json"
	"fmt"

	"orcid/internal/orcid"
	"orcid/internal/orcid/sandbox"

	"github.com/spf13/cobra"
)

func newSandboxCodeCmd(root *rootOptions) *cobra.Command {
	var (
		exchange    bool
		redirectURI string
		creds       = sandbox.CredentialsFromEnv()
	)

	cmd := &cobra.Command{
		Use:   "sandbox-code",
		Short: "Obtain an authorization code for a claimed ORCID sandbox profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := root.logger()

			sbCfg, err := sandbox.ConfigFromProvider(orcid.NewProvider(cfg.ORCID))
			if err != nil {
				return err
			}
			if redirectURI != "" {
				sbCfg.RedirectURI = redirectURI
			}

			client, err := sandbox.New(sbCfg, log)
			if err != nil {
				return err
			}

			code, err := client.RequestAuthorizationCode(cmd.Context(), creds)
			if err != nil {
				return err
			}

			if !exchange {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), code)
				return err
			}

			token, err := client.Exchange(cmd.Context(), code)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(token)
		},
	}

	cmd.Flags().BoolVar(&exchange, "exchange", false, "trade the code for an access token")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "override the registered redirect URI")
	cmd.Flags().StringVar(&creds.OrcidProfileID, "profile-id", creds.OrcidProfileID, "claimed sandbox ORCID iD (ORCID_CLAIMED_PROFILE_ID)")
	cmd.Flags().StringVar(&creds.Password, "password", creds.Password, "claimed sandbox profile password (ORCID_CLAIMED_PROFILE_PASSWORD)")

	return cmd
}
