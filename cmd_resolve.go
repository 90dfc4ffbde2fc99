package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"haruki-const-decrypter/decrypter"
)

func newResolveCmd() *cobra.Command {
	var routine, arg0, arg1 uint32
	cmd := &cobra.Command{
		Use:   "resolve <dump>",
		Short: "Decrypt the constant loaded with (arg0, arg1) through a decrypt routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules, err := loadModules(cmd.Context(), sources(args))
			if err != nil {
				return err
			}
			if len(modules) > 1 {
				return fmt.Errorf("%s holds %d module dumps, resolve takes exactly one", args[0], len(modules))
			}
			d, err := decrypter.Open(modules[0], decrypterOptions())
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("%s is not protected", modules[0].Name)
			}
			if routine == 0 {
				infos := d.Infos()
				if len(infos) == 0 {
					return d.Failures()
				}
				routine = infos[0].Token()
			}
			c, err := d.Resolve(routine, arg0, arg1)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", color.CyanString(c.Type), c.Value)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&routine, "routine", 0, "decrypt routine token (default: first usable routine)")
	cmd.Flags().Uint32Var(&arg0, "arg0", 0, "first call argument")
	cmd.Flags().Uint32Var(&arg1, "arg1", 0, "second call argument")
	return cmd
}
