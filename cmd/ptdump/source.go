package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/oy3o/ptypes/provider"
)

// addressFlag is a [pflag.Value] for addresses written in any Go integer
// syntax, so 0x-prefixed hex works.
type addressFlag int64

var _ pflag.Value = (*addressFlag)(nil)

func (f *addressFlag) Set(s string) error {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return fmt.Errorf("parse address: %v", err)
	}
	*f = addressFlag(n)
	return nil
}

func (f *addressFlag) Type() string  { return "address" }
func (f addressFlag) String() string { return fmt.Sprintf("%#x", int64(f)) }

type sourceOptions struct {
	file string
	pid  int
	base addressFlag
}

func (opts *sourceOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&opts.file, "file", "", "read from the file at `path` (- for stdin)")
	fs.IntVar(&opts.pid, "pid", 0, "read the memory of process `pid`")
	fs.Var(&opts.base, "base", "`address` the first byte of the input is loaded at")
}

// open returns the provider selected by the options. The returned closer
// releases it.
func (opts *sourceOptions) open(stdin io.Reader) (provider.Provider, func() error, error) {
	var p provider.Provider
	closer := func() error { return nil }
	switch {
	case opts.file != "" && opts.pid != 0:
		return nil, nil, fmt.Errorf("can specify at most one of --file or --pid")
	case opts.pid != 0:
		m, err := provider.OpenProcess(opts.pid)
		if err != nil {
			return nil, nil, err
		}
		p = m
	case opts.file == "-":
		s, err := provider.NewStream(stdin)
		if err != nil {
			return nil, nil, err
		}
		p = s
	case opts.file != "":
		f, err := provider.OpenFile(opts.file, false)
		if err != nil {
			return nil, nil, err
		}
		p, closer = f, f.Close
	default:
		return nil, nil, fmt.Errorf("no input: pass --file or --pid")
	}
	if opts.base != 0 {
		p = provider.NewWindow(p, int64(opts.base), -1)
	}
	return p, closer, nil
}
