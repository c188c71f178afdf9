// ptdump decodes libmalloc heap structures from files, pipes and live
// processes.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"zombiezen.com/go/log"
)

func main() {
	rootCommand, g := newRootCommand()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(g.Debug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

func newRootCommand() (*cobra.Command, *globalConfig) {
	rootCommand := &cobra.Command{
		Use:           "ptdump",
		Short:         "decode binary heap structures",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	flags := new(globalFlags)
	rootCommand.PersistentFlags().BoolVar(&flags.debug, "debug", false, "show debugging output")
	rootCommand.PersistentFlags().StringVar(&flags.byteOrder, "byte-order", "", "integer byte `order` (little or big)")
	rootCommand.PersistentFlags().IntVar(&flags.pointerSize, "pointer-size", 0, "pointer width in `bytes`")
	rootCommand.PersistentFlags().IntVar(&flags.maxElements, "max-elements", 0, "largest `count` of array elements decoded")

	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := g.mergeFiles(configFiles()); err != nil {
			return err
		}
		if err := g.mergeEnvironment(); err != nil {
			return err
		}
		g.mergeFlags(cmd.Flags(), flags)
		initLogging(g.Debug)
		return nil
	}

	rootCommand.AddCommand(
		newListCommand(),
		newDecodeCommand(g),
		newTinyMapCommand(g),
	)
	return rootCommand, g
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "ptdump: ", log.StdFlags, nil),
		})
	})
}
