package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/smazurov/codecbridge/internal/codec"
	"github.com/spf13/cobra"
)

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	var roleFilter string
	var direction string
	var disableBayer bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported pixel formats",
		Long: `Prints the pixel formats each accelerator role accepts on its input and ` +
			`output queues, without touching the hardware.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			roles := codec.Roles()
			if roleFilter != "" {
				role, err := codec.ParseRole(roleFilter)
				if err != nil {
					return err
				}
				roles = []codec.Role{role}
			}

			dirs := []codec.Direction{codec.DirInput, codec.DirOutput}
			if direction != "" {
				dir, err := codec.ParseDirection(direction)
				if err != nil {
					return err
				}
				dirs = []codec.Direction{dir}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tQUEUE\tFOURCC\tDEPTH\tKIND")
			for _, role := range roles {
				for _, dir := range dirs {
					for _, f := range codec.SupportedFormats(role, dir, disableBayer, nil) {
						kind := "raw"
						switch {
						case f.Compressed:
							kind = "compressed"
						case f.Bayer:
							kind = "bayer"
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
							role.String(), dir.String(), codec.FourCCString(f.FourCC), f.Depth, kind)
					}
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&roleFilter, "role", "", "Limit output to one role (decode, encode, isp, deinterlace, encode-image)")
	cmd.Flags().StringVar(&direction, "direction", "", "Limit output to one queue (input or output)")
	cmd.Flags().BoolVar(&disableBayer, "disable-bayer", false, "Hide raw sensor formats")

	return cmd
}
