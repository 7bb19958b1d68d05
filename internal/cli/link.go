package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/tailray/internal/daemon/link"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Connect to Tailscale",
	RunE:  runLink(link.Up),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Disconnect from Tailscale",
	RunE:  runLink(link.Down),
}

func runLink(verb link.Verb) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		if err := d.Link(cmd.Context(), verb); err != nil {
			return err
		}

		p := newPrinter(cmd.OutOrStdout())
		st, up := d.Current()
		switch {
		case st == nil:
			fmt.Fprintf(p.w, "%s %s\n", p.render(styleWarning, "!"), "tailscale "+string(verb)+" succeeded, status unavailable")
		case up:
			fmt.Fprintf(p.w, "%s %s\n", p.render(styleSuccess, "✓"), "Connected as "+deviceLine(st.Self.DisplayName.String(), st.SelfIP()))
		default:
			fmt.Fprintf(p.w, "%s %s\n", p.render(styleSuccess, "✓"), "Disconnected ("+string(st.BackendState)+")")
		}
		return nil
	}
}
