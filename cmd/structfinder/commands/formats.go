/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formats.go
Description: The formats command. Lists the built-in timestamp formats that inference
recognises and that --timestamp-format accepts by name.
*/

package commands

import (
	"github.com/kleascm/structfinder/pkg/report"
	"github.com/kleascm/structfinder/pkg/timestamp"
	"github.com/spf13/cobra"
)

// NewFormatsCommand creates the formats command
func NewFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the recognised timestamp formats",
		Long: `List every built-in timestamp format with an example and its Go layouts. Any of the
names can be passed to find --timestamp-format; a Go layout is accepted as well.`,
		Args: cobra.NoArgs,
		RunE: ListFormats,
	}
}

// ListFormats prints the timestamp format table
func ListFormats(cmd *cobra.Command, args []string) error {
	return report.RenderTimestampFormats(cmd.OutOrStdout(), timestamp.Formats())
}
