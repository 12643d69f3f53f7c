package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	config "time-exchange.com/time-exchange/internal/configs"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var (
	userName        string
	userEmail       string
	userDescription string
	userCredits     int64
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user with an opening credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(config.Load(), nil)
		defer a.close()

		user, err := a.users.CreateUser(context.Background(), userName, userEmail, userDescription, userCredits)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d credits\n", user.ID, user.Name, user.TimeCredits)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userDescription, "description", "", "short profile text")
	userCreateCmd.Flags().Int64Var(&userCredits, "credits", 0, "opening time credit balance")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
