package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overlay-tools/ovm/internal/manager"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available or installed overlays",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		installed, _ := cmd.Flags().GetBool("installed")
		verbose, _ := cmd.Flags().GetBool("verbose")

		for _, entry := range m.List(installed, verbose) {
			marker := " "
			if entry.Official {
				marker = "*"
			}
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), entry.Text)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, entry.Text)
			}
		}
		reportErrors(cmd, m)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <overlay>...",
	Short: "Enable overlays from the available list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		ok := m.AddRepos(args)
		reportErrors(cmd, m)
		if !ok {
			return fmt.Errorf("not all overlays could be enabled")
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <overlay>...",
	Aliases: []string{"delete"},
	Short:   "Disable installed overlays",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		ok := m.DeleteRepos(args)
		reportErrors(cmd, m)
		if !ok {
			return fmt.Errorf("not all overlays could be disabled")
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [overlay]...",
	Short: "Synchronize installed overlays from their sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all || len(args) == 0 {
			if ids, err = m.GetInstalled(false); err != nil {
				return err
			}
		}

		ok := m.SyncContext(cmd.Context(), ids)
		printSyncResult(cmd, m.LastSyncResult())
		reportErrors(cmd, m)
		if !ok {
			return fmt.Errorf("not all overlays could be synchronized")
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <overlay>...",
	Short: "Show the recorded metadata of overlays",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		info := m.GetInfoStr(args)
		for _, id := range args {
			entry, ok := info[id]
			if !ok || entry.Info == "" {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.Info)
			if !entry.Supported {
				fmt.Fprintf(cmd.OutOrStdout(), "*** The overlay %q is not supported on this system.\n\n", id)
			}
		}
		reportErrors(cmd, m)
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Refresh the cached remote overlay list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}

		ok := m.FetchRemoteListContext(cmd.Context())
		reportErrors(cmd, m)
		if !ok {
			return fmt.Errorf("failed to fetch the remote overlay list")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Remote overlay list updated.")
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("installed", false, "List installed instead of available overlays")
	listCmd.Flags().Bool("verbose", false, "Show the full info block per overlay")
	syncCmd.Flags().Bool("all", false, "Synchronize every installed overlay")
}

func printSyncResult(cmd *cobra.Command, result *manager.SyncResult) {
	if result == nil {
		return
	}
	out := cmd.OutOrStdout()

	if len(result.Success) > 0 {
		fmt.Fprintln(out, "\nSuccess:\n------")
		for _, entry := range result.Success {
			fmt.Fprintln(out, entry.Message)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:\n------")
		for _, entry := range result.Warnings {
			fmt.Fprintln(out, entry.Message+"\n")
		}
	}
	if len(result.Fatals) > 0 {
		fmt.Fprintln(out, "\nErrors:\n------")
		for _, entry := range result.Fatals {
			fmt.Fprintln(out, entry.Message+"\n")
		}
	}
}
