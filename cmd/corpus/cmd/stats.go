package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsOutput is the JSON output format for index statistics.
type StatsOutput struct {
	DataDir        string `json:"data_dir"`
	Sources        int    `json:"sources"`
	ActiveSources  int    `json:"active_sources"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
	Dimensions     int    `json:"dimensions"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
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

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			output := StatsOutput{
				DataDir:        cfg.DataDir,
				Sources:        stats.Sources,
				ActiveSources:  stats.ActiveSources,
				Documents:      stats.Documents,
				Chunks:         stats.Chunks,
				EmbeddedChunks: stats.EmbeddedChunks,
				Dimensions:     st.Dimensions(),
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(output)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Index Statistics")
			fmt.Fprintln(w, "================")
			fmt.Fprintf(w, "Data directory:  %s\n", output.DataDir)
			fmt.Fprintf(w, "Sources:         %d (%d active)\n", output.Sources, output.ActiveSources)
			fmt.Fprintf(w, "Documents:       %d\n", output.Documents)
			fmt.Fprintf(w, "Chunks:          %d\n", output.Chunks)
			fmt.Fprintf(w, "Embedded chunks: %d\n", output.EmbeddedChunks)
			fmt.Fprintf(w, "Dimensions:      %d\n", output.Dimensions)

			if output.Chunks > output.EmbeddedChunks {
				fmt.Fprintln(w)
				fmt.Fprintf(w, "%d chunks have no embedding and only match keyword search.\n",
					output.Chunks-output.EmbeddedChunks)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
