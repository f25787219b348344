package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSitesCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List configured sites and their enabled checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sites := a.cfg.Sites

			switch format {
			case "json":
				b, err := json.MarshalIndent(sites, "", "  ")
				if err != nil {
					return fmt.Errorf("encode sites: %w", err)
				}
				fmt.Fprintln(out, string(b))
				return nil
			case "yaml":
				b, err := yaml.Marshal(sites)
				if err != nil {
					return fmt.Errorf("encode sites: %w", err)
				}
				fmt.Fprint(out, string(b))
				return nil
			case "text":
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}

			if len(sites) == 0 {
				fmt.Fprintf(out, "%s no sites configured\n", colorWarn("!"))
				return nil
			}
			if a.cfg.File != "" {
				fmt.Fprintf(out, "%s %s\n", colorInfo("→"), a.cfg.File)
			}
			for _, s := range sites {
				fmt.Fprintf(out, "%-16s %-40s %s\n", s.ID, s.URL, formatChecks(s.Checks))
				if s.Name != "" && s.Name != s.ID {
					fmt.Fprintf(out, "  %s\n", s.Name)
				}
				for _, p := range s.Pages {
					u, err := s.PageURL(p)
					if err != nil {
						fmt.Fprintf(out, "  %s %s: %v\n", colorError("✗"), p.Path, err)
						continue
					}
					fmt.Fprintf(out, "  - %s\n", u)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	return cmd
}
