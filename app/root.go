// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "makrcave-access",
	Short: "makrcave-access is the access control service for MakrCave",
	Long: `makrcave-access is the role-based access control service for the
MakrCave makerspace platform. It manages permissions, roles, role
assignments, login sessions and password policies per makerspace tenant.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
