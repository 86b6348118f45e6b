package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get or set a persisted key/value configuration entry",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a configuration key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key to a value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	val, err := eng.GetConfig(ctx, args[0], "")
	if err != nil {
		return fmt.Errorf("get config failed: %w", err)
	}
	fmt.Println(val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, eng, closeFn, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := eng.SetConfig(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("set config failed: %w", err)
	}
	return nil
}
