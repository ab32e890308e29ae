package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Byiringiro215/lms/internal/entrypoint"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/seed"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark past-due borrowings overdue once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *entrypoint.App) error {
				marked, err := app.Sweeper.RunNow(ledger.TriggerCLI)
				if err != nil {
					return fmt.Errorf("sweep failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d borrowings overdue\n", marked)
				return nil
			})
		},
	}
}

func newPromoteCommand() *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change the role of an existing user",
		Long: "Change the role of a user who has signed in at least once.\n" +
			"Used to bootstrap the first librarian.",
		Example: "  lms promote --email jane@example.com --role LIBRARIAN",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *entrypoint.App) error {
				user, err := app.Users.Promote(cmd.Context(), email, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the user to promote")
	cmd.Flags().StringVar(&role, "role", "LIBRARIAN", "new role: STUDENT, TEACHER, LIBRARIAN or ADMIN")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample catalog (books already present are skipped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *entrypoint.App) error {
				res, err := seed.Books(cmd.Context(), app.Catalog, seed.SampleBooks(), app.Log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d books (%d already present)\n", len(res.Created), res.Skipped)
				return nil
			})
		},
	}
}
