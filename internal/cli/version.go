package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/tailray/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		p := newPrinter(cmd.OutOrStdout())
		fmt.Fprintf(p.w, "  %s %s\n",
			p.render(styleBrand, "tailray"),
			p.render(styleVersion, buildinfo.Version),
		)
		fmt.Fprintf(p.w, "    %s  %s\n", p.render(styleLabel, "Commit"), p.render(styleValue, buildinfo.CommitHash))
		fmt.Fprintf(p.w, "    %s   %s\n", p.render(styleLabel, "Built"), p.render(styleValue, buildinfo.BuildDate))
		fmt.Fprintf(p.w, "    %s %s\n", p.render(styleLabel, "OS/Arch"), p.render(styleValue, runtime.GOOS+"/"+runtime.GOARCH))
		fmt.Fprintf(p.w, "    %s      %s\n", p.render(styleLabel, "Go"), p.render(styleValue, runtime.Version()))
	},
}
