package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"haruki-const-decrypter/config"
	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/pool"
	"haruki-const-decrypter/report"
	"haruki-const-decrypter/utils/cloud"
)

func newReportCmd() *cobra.Command {
	var format, outDir string
	var types []string
	var upload bool
	cmd := &cobra.Command{
		Use:   "report [dump...]",
		Short: "Resolve every protected constant load and write a report per module",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = config.Cfg.Report.Format
			}
			if !cmd.Flags().Changed("out") {
				outDir = config.Cfg.Report.OutputDir
			}
			if !cmd.Flags().Changed("upload") {
				upload = config.Cfg.Report.Upload
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			var only []pool.TypeCode
			for _, name := range types {
				tc, err := pool.ParseTypeCode(name)
				if err != nil {
					return err
				}
				only = append(only, tc)
			}
			modules, err := loadModules(cmd.Context(), sources(args))
			if err != nil {
				return err
			}
			var written []string
			for _, m := range modules {
				d, err := decrypter.Open(m, decrypterOptions())
				if err != nil {
					mainLogger.Errorf("%s: %v", m.Name, err)
					continue
				}
				if d == nil {
					mainLogger.Infof("%s is not protected, skipping", m.Name)
					continue
				}
				r := report.Scan(d)
				r.Only(only...)
				path, err := report.Write(r, outDir, f)
				if err != nil {
					return err
				}
				written = append(written, path)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s resolved, %s failed -> %s\n",
					m.Name, color.GreenString("%d", r.Resolved), color.RedString("%d", r.Failed), path)
			}
			if upload && len(written) > 0 {
				return cloud.UploadToAllStorages(cmd.Context(), written, outDir, false)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "report format: json, msgpack or yaml")
	cmd.Flags().StringVarP(&outDir, "out", "o", "reports", "output directory")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "only report constants of these types: int32, int64, single, double, string")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload reports to the configured remote storages")
	return cmd
}
