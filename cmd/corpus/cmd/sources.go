package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/corpushq/corpus/internal/store"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage knowledge sources",
		Long: `Knowledge sources group documents into named collections. Searches can
be scoped to a single source, and deactivated sources are excluded
from all searches without deleting their data.`,
	}

	cmd.AddCommand(newSourcesAddCmd())
	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesActivateCmd(true))
	cmd.AddCommand(newSourcesActivateCmd(false))
	cmd.AddCommand(newSourcesDeleteCmd())

	return cmd
}

func newSourcesAddCmd() *cobra.Command {
	var description string
	var sourceType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a knowledge source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			name := args[0]
			existing, err := st.GetSourceByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("source %q already exists (id %s)", name, existing.ID)
			}

			src := &store.KnowledgeSource{
				ID:          uuid.NewString(),
				Name:        name,
				Description: description,
				SourceType:  store.SourceType(sourceType),
				Active:      true,
			}
			if err := st.SaveSource(cmd.Context(), src); err != nil {
				return err
			}

			out := newConsole(cmd.OutOrStdout())
			out.Statusf("✓", "Added source %q (%s)", src.Name, src.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Source description")
	cmd.Flags().StringVarP(&sourceType, "type", "t", string(store.SourceTypeDocument),
		"Source type: document, faq, manual, web")

	return cmd
}

func newSourcesListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sources, err := st.ListSources(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sources)
			}

			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources. Add one with 'corpus sources add <name>'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tACTIVE\tID\tDESCRIPTION")
			for _, s := range sources {
				active := "yes"
				if !s.Active {
					active = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.Name, s.SourceType, active, s.ID, s.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newSourcesActivateCmd(active bool) *cobra.Command {
	use, short := "activate <name>", "Include a source in searches"
	if !active {
		use, short = "deactivate <name>", "Exclude a source from searches"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			src, err := resolveSource(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if src == nil {
				return fmt.Errorf("source %q not found", args[0])
			}
			if err := st.SetSourceActive(cmd.Context(), src.ID, active); err != nil {
				return err
			}

			out := newConsole(cmd.OutOrStdout())
			if active {
				out.Statusf("✓", "Source %q activated", src.Name)
			} else {
				out.Statusf("✓", "Source %q deactivated", src.Name)
			}
			return nil
		},
	}
}

func newSourcesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a source and all its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			src, err := resolveSource(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if src == nil {
				return fmt.Errorf("source %q not found", args[0])
			}

			if !yes {
				return fmt.Errorf("deleting %q removes all its documents and chunks; re-run with --yes to confirm", src.Name)
			}

			if err := st.DeleteSource(cmd.Context(), src.ID); err != nil {
				return err
			}
			if err := st.Save(); err != nil {
				return err
			}

			out := newConsole(cmd.OutOrStdout())
			out.Statusf("✓", "Deleted source %q", src.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
