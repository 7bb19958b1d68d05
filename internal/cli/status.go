package cli

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/tailray/internal/daemon"
	"github.com/watchfire-io/tailray/internal/models"
	"github.com/watchfire-io/tailray/internal/tailscale"
)

// Overridden in tests.
var (
	newRunner = func(s *models.Settings) tailscale.Runner {
		return tailscale.ExecRunner{Timeout: s.Provider.CommandTimeout}
	}
	lookPath    = exec.LookPath
	currentUser = user.Current
)

var flagStatusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Tailscale connection and tailnet devices",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusJSON, "json", false, "Print the decoded status as JSON")
}

func newDaemon() (*daemon.Daemon, error) {
	return daemon.New(settings, daemon.Options{
		Runner:      newRunner(settings),
		LookPath:    lookPath,
		CurrentUser: currentUser,
		WatchDir:    "-",
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := tailscale.NewClient(newRunner(settings), settings.Provider.Binary)
	st, err := client.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	out := cmd.OutOrStdout()
	if flagStatusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printStatus(newPrinter(out), st)
	return nil
}

func printStatus(p *printer, st *tailscale.Status) {
	state := p.render(styleError, "Disconnected")
	if st.IsUp() {
		state = p.render(styleSuccess, "Connected")
	}
	fmt.Fprintf(p.w, "  %s %s %s\n", p.render(styleBrand, "Tailscale"), state, p.render(styleHint, "("+string(st.BackendState)+")"))
	fmt.Fprintf(p.w, "    %s  %s\n", p.render(styleLabel, "Tailnet"), p.render(styleValue, orDash(st.CurrentTailnet.Name)))
	fmt.Fprintf(p.w, "    %s  %s\n", p.render(styleLabel, "Version"), p.render(styleValue, st.Version))
	fmt.Fprintf(p.w, "    %s   %s\n", p.render(styleLabel, "Device"), p.render(styleValue, deviceLine(st.Self.DisplayName.String(), st.SelfIP())))

	if node, ok := st.ExitNode(); ok {
		online := "offline"
		if st.ExitNodeStatus.Online {
			online = "online"
		}
		fmt.Fprintf(p.w, "    %s %s %s\n", p.render(styleLabel, "Exit node"), p.render(styleValue, node.DisplayName.String()), p.render(styleHint, "("+online+")"))
	}

	peers := st.SortedPeers()
	fmt.Fprintf(p.w, "\n  %s\n", p.render(styleBrand, fmt.Sprintf("Devices (%d)", len(peers))))
	if len(peers) == 0 {
		fmt.Fprintf(p.w, "    %s\n", p.render(styleHint, "No other devices in this tailnet."))
		return
	}

	nameWidth := 0
	for _, peer := range peers {
		nameWidth = max(nameWidth, len(peer.DisplayName.Value))
	}
	for _, peer := range peers {
		dot := p.render(styleHint, "○")
		if peer.Online {
			dot = p.render(styleSuccess, "●")
		}
		ip := ""
		if addr, ok := peer.PrimaryIP(); ok {
			ip = addr.String()
		}
		owner := ""
		if u, ok := st.Owner(peer); ok {
			owner = u.LoginName
		}
		name := fmt.Sprintf("%-*s", nameWidth, peer.DisplayName.Value)
		line := fmt.Sprintf("    %s %s  %-15s  %s", dot, p.render(styleValue, name), ip, p.render(styleHint, strings.TrimSpace(peer.OS+"  "+owner)))
		fmt.Fprintln(p.w, strings.TrimRight(line, " "))
	}
}

func deviceLine(name, ip string) string {
	if ip == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, ip)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
