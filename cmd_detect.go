package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/version"
)

func newDetectCmd() *cobra.Command {
	var expect string
	cmd := &cobra.Command{
		Use:   "detect [dump...]",
		Short: "Report which protector revision produced each module",
		RunE: func(cmd *cobra.Command, args []string) error {
			want := version.Unknown
			if expect != "" {
				v, err := version.Parse(expect)
				if err != nil {
					return err
				}
				want = v
			}
			modules, err := loadModules(cmd.Context(), sources(args))
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			var mismatched []string
			for _, m := range modules {
				d := decrypter.New(m, decrypterOptions())
				if !d.Detect() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Name, yellow("not protected"))
					if want != version.Unknown {
						mismatched = append(mismatched, m.Name)
					}
					continue
				}
				det := d.Detection()
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (decrypt routine %s)\n", m.Name, green(det.Version), det.DecryptMethod.FullName())
				if want != version.Unknown && det.Version != want {
					mismatched = append(mismatched, m.Name)
				}
			}
			if len(mismatched) > 0 {
				return fmt.Errorf("not %s: %s", want, strings.Join(mismatched, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&expect, "expect", "", "fail unless every module was produced by this revision, e.g. v17_r74816_normal")
	return cmd
}
