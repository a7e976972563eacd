package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/storyd/internal/sites"

	"github.com/spf13/cobra"
)

var flagSitesJSON bool

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the site rules with their discovery/extraction strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := sites.Rules()

		if flagSitesJSON {
			type row struct {
				Name          string `json:"name"`
				FullName      string `json:"full_name"`
				Pattern       string `json:"pattern"`
				Documentation string `json:"documentation,omitempty"`
				Custom        bool   `json:"custom_strategy"`
			}

			rows := make([]row, 0, len(rules))
			for _, r := range rules {
				rows = append(rows, row{
					Name:          r.Name,
					FullName:      r.FullName,
					Pattern:       r.Pattern.String(),
					Documentation: r.Documentation,
					Custom:        r.Discoverer != nil || r.Extractor != nil,
				})
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tSITE\tSTRATEGY\tNOTES")
		for _, r := range rules {
			strategy := "default"
			if r.Discoverer != nil || r.Extractor != nil {
				strategy = "custom"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.FullName, strategy, r.Documentation)
		}

		return w.Flush()
	},
}

func init() {
	sitesCmd.Flags().BoolVar(&flagSitesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(sitesCmd)
}
