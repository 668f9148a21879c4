package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthops/probes"
)

func newProbesCmd(root *rootOptions) *cobra.Command {
	var listTypes bool

	cmd := &cobra.Command{
		Use:   "probes",
		Short: "List configured probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if listTypes {
				for _, t := range probes.Types() {
					fmt.Fprintln(out, t)
				}
				return nil
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tTAGS\tTIMEOUT")
			for _, p := range cfg.Probes {
				timeout := "-"
				if p.Timeout > 0 {
					timeout = p.Timeout.String()
				}
				tags := "-"
				if len(p.Tags) > 0 {
					tags = strings.Join(p.Tags, ",")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Type, tags, timeout)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&listTypes, "types", false, "list the supported probe types instead")
	return cmd
}
