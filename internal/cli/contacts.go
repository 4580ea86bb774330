package cli

import (
	"fmt"

	"sentinel/internal/platform/config"
	str "sentinel/internal/platform/strings"
	identdom "sentinel/internal/services/ident/domain"
	identrepo "sentinel/internal/services/ident/repo"

	"github.com/spf13/cobra"
)

// NewCmdContacts creates the contacts command
func NewCmdContacts() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Inspect the contact directory",
	}
	cmd.AddCommand(newCmdContactsCheck())
	return cmd
}

func newCmdContactsCheck() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the contact directory file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := str.FirstNonBlank(file, config.New().Prefix("CORE_").MayString("CONTACTS_FILE", ""))
			dir, err := identrepo.NewFile(path).Load(cmd.Context())
			if err != nil {
				return err
			}

			var orgs []string
			noEmail := 0
			for _, c := range dir {
				if o := identdom.Known(c.Organization); o != "" {
					orgs = append(orgs, o)
				}
				if identdom.Known(c.Email) == "" {
					noEmail++
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d contacts, %d organizations, %d without email\n",
				path, len(dir), len(str.Distinct(orgs)), noEmail)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "directory file, defaults to CORE_CONTACTS_FILE")
	return cmd
}
