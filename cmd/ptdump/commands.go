package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"zombiezen.com/go/log"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/bitmap"
	"github.com/oy3o/ptypes/codecs"
	"github.com/oy3o/ptypes/macheap"
)

func newListCommand() *cobra.Command {
	c := &cobra.Command{
		Use:                   "list",
		Short:                 "list the structures that can be decoded",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		for _, name := range macheap.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}
	return c
}

type decodeOptions struct {
	sourceOptions
	name      string
	offset    addressFlag
	depth     int
	cookie    addressFlag
	hasCookie bool
	small     bool
}

func newDecodeCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "decode [options] NAME",
		Short:                 "decode a structure and print its fields",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(decodeOptions)
	opts.addFlags(c.Flags())
	c.Flags().Var(&opts.offset, "offset", "`address` of the structure")
	c.Flags().IntVar(&opts.depth, "depth", -1, "print at most `n` levels (negative for all)")
	c.Flags().Var(&opts.cookie, "cookie", "free list checksum `cookie` used outside of a szone_t")
	c.Flags().BoolVar(&opts.small, "small", false, "decode with the small region quantum")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.name = args[0]
		opts.hasCookie = cmd.Flags().Changed("cookie")
		return runDecode(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return c
}

func runDecode(ctx context.Context, g *globalConfig, opts *decodeOptions, stdin io.Reader, stdout io.Writer) error {
	cfg, err := g.arenaConfig()
	if err != nil {
		return err
	}
	shape, err := macheap.Types.Lookup(opts.name)
	if err != nil {
		return err
	}
	src, closeSource, err := opts.open(stdin)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	instOpts := []ptypes.Option{ptypes.WithSource(src), ptypes.WithOffset(int64(opts.offset))}
	if opts.hasCookie {
		instOpts = append(instOpts, ptypes.WithRecurse(codecs.CookieAttr, uint64(opts.cookie)))
	}
	if opts.small {
		instOpts = append(instOpts, ptypes.WithRecurse(macheap.QuantumAttr, macheap.SmallQuantum))
	}
	inst := ptypes.NewArena(ctx, cfg).New(shape, instOpts...)
	log.Debugf(ctx, "decoding %s at %#x", opts.name, int64(opts.offset))

	loadErr := inst.Load()
	if err := inst.Tree(stdout, opts.depth); err != nil {
		return err
	}
	for _, issue := range inst.AllIssues() {
		fmt.Fprintf(stdout, "issue: %v\n", issue)
	}
	return loadErr
}

type tinyMapOptions struct {
	sourceOptions
	offset addressFlag
}

func newTinyMapCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "tiny-map [options]",
		Short:                 "list the chunks of a tiny region",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(tinyMapOptions)
	opts.addFlags(c.Flags())
	c.Flags().Var(&opts.offset, "offset", "`address` of the region")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runTinyMap(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return c
}

func runTinyMap(ctx context.Context, g *globalConfig, opts *tinyMapOptions, stdin io.Reader, stdout io.Writer) error {
	cfg, err := g.arenaConfig()
	if err != nil {
		return err
	}
	src, closeSource, err := opts.open(stdin)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.Errorf(ctx, "%v", err)
		}
	}()

	region := ptypes.NewArena(ctx, cfg).New(macheap.Region,
		ptypes.WithSource(src),
		ptypes.WithOffset(int64(opts.offset)),
		ptypes.WithRecurse(macheap.QuantumAttr, macheap.TinyQuantum),
	)
	if err := region.Load(); err != nil {
		return err
	}
	meta, err := region.Field("metadata")
	if err != nil {
		return err
	}
	chunks, err := macheap.Enumerate(meta)
	if err != nil {
		return err
	}
	inuse, err := macheap.Inuse(meta)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tINDEX\tMSIZE\tBYTES\tSTATE")
	for _, c := range chunks {
		state := "free"
		if b, err := bitmap.Get(inuse, c.Index, 1); err == nil && b.Uint64() == 1 {
			state = "in use"
		}
		addr := region.Offset() + int64(c.Index*macheap.TinyQuantum)
		fmt.Fprintf(tw, "%#x\t%d\t%d\t%d\t%s\n", addr, c.Index, c.MSize, c.MSize*macheap.TinyQuantum, state)
	}
	return tw.Flush()
}
