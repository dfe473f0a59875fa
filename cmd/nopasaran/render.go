package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BenIlies/NoPASARAN-sub000/config"
	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/tools"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render CHART",
	Short: "Render a chart as Graphviz dot, Mermaid, or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readChart(args[0])
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if filename, _ := cmd.Flags().GetString("out"); filename != "" {
			f, err := os.Create(filename)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "dot":
			return tools.Dot(c, out, "", "")
		case "mermaid":
			return tools.Mermaid(c, out, nil)
		case "html":
			graph, _ := cmd.Flags().GetBool("graph")
			css, _ := cmd.Flags().GetStringSlice("css")
			return tools.RenderChartPage(c, out, css, graph)
		default:
			return fmt.Errorf(`unknown format "%s"`, format)
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("format", "f", "dot", "dot, mermaid, or html")
	renderCmd.Flags().StringP("out", "o", "", "output filename (default stdout)")
	renderCmd.Flags().Bool("graph", true, "include a Mermaid graph in HTML")
	renderCmd.Flags().StringSlice("css", nil, "stylesheets for HTML")
}

func readChart(filename string) (*core.Chart, error) {
	bs, err := config.ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	return core.ParseChartBytes(bs)
}
