package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

var polJSON bool

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List promotion tier policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		list := c.Policies()
		out := cmd.OutOrStdout()
		if polJSON {
			b, err := utils.PrettyJSON(list)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		current := ""
		if p, err := c.Policy(); err == nil {
			current = p.Name
		}
		for _, p := range list {
			marker := " "
			if p.Name == current {
				marker = "*"
			}
			var tiers, promote []string
			for i := 0; i < p.TierCount(); i++ {
				tiers = append(tiers, p.TierLabel(i))
				if p.Promotes(i) {
					promote = append(promote, p.TierLabel(i))
				}
			}
			fmt.Fprintf(out, "%s %-8s tiers: %-22s promotes: %s\n", marker, p.Name, strings.Join(tiers, " | "), strings.Join(promote, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.Flags().BoolVar(&polJSON, "json", false, "output JSON")
}
