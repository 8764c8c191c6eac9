package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "course-payments",
	Short: "Course enrollment payments service",
	Long:  "Sells course access through hosted payment gateways, reconciles gateway callbacks and polls, and grants enrollments.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
