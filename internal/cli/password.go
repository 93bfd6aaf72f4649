package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dlvery/internal/password"
)

var errPasswordRejected = errors.New("password does not meet the policy")

func passwordCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "password",
		Short: "Password policy tools",
	}
	c.AddCommand(passwordCheckCmd())
	return c
}

func passwordCheckCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "check <password>",
		Short: "Evaluate a password against the registration policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := password.Assess(args[0])
			out := cmd.OutOrStdout()

			if asJSON {
				if err := writeJSON(out, a); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "score:    %d\n", a.Score)
				fmt.Fprintf(out, "strength: %s\n", a.Strength)
				for _, r := range a.Requirements {
					mark := " "
					if r.Met {
						mark = "x"
					}
					fmt.Fprintf(out, "[%s] %s\n", mark, r.Label)
				}
				for _, msg := range a.Messages {
					fmt.Fprintf(out, "- %s\n", msg)
				}
			}

			if !a.Valid {
				return errPasswordRejected
			}
			return nil
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "Print the full assessment as JSON")
	return c
}
