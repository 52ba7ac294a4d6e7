package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted sessions",
	Long:  `List, inspect, and remove sessions in the configured store. Session ids have the form <bot>:<sender>.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		keys, err := app.Sessions.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, k := range keys {
			fmt.Fprintln(out, "- "+k)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		s, err := app.Sessions.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		var errs []error
		out := cmd.OutOrStdout()
		for _, id := range args {
			if err := app.Sessions.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
