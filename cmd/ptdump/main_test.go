//go:build test

package main

import (
	"bytes"
	"encoding/binary"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/ptypes"
	"github.com/oy3o/ptypes/macheap"
)

func seq(paths ...string) iter.Seq[string] {
	return slices.Values(paths)
}

// run executes ptdump with the given config files and returns its output.
func run(t *testing.T, stdin []byte, files []string, args ...string) (string, error) {
	t.Helper()
	saved := configFiles
	configFiles = func() iter.Seq[string] { return seq(files...) }
	t.Cleanup(func() { configFiles = saved })

	root, _ := newRootCommand()
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetIn(bytes.NewReader(stdin))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o666))
	return path
}

func TestGlobalConfigMergeFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "config1.hujson")
	require.NoError(t, os.WriteFile(first, []byte(`{
		// defaults for this machine
		"debug": true,
		"byteOrder": "big",
		"pointerSize": 4,
		"somethingElse": [1, 2, 3],
	}`), 0o666))
	second := filepath.Join(dir, "config2.hujson")
	require.NoError(t, os.WriteFile(second, []byte(`{"pointerSize": 8}`), 0o666))

	g := defaultGlobalConfig()
	require.NoError(t, g.mergeFiles(seq(first, filepath.Join(dir, "missing.hujson"), second)))
	want := &globalConfig{Debug: true, ByteOrder: "big", PointerSize: 8, MaxElements: ptypes.Default.MaxElements}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}

	bad := filepath.Join(dir, "bad.hujson")
	require.NoError(t, os.WriteFile(bad, []byte(`{"debug": `), 0o666))
	assert.Error(t, defaultGlobalConfig().mergeFiles(seq(bad)))
}

func TestGlobalConfigMergeEnvironment(t *testing.T) {
	t.Setenv("PTDUMP_BYTE_ORDER", "be")
	t.Setenv("PTDUMP_POINTER_SIZE", "4")
	g := defaultGlobalConfig()
	require.NoError(t, g.mergeEnvironment())
	assert.Equal(t, "be", g.ByteOrder)
	assert.Equal(t, 4, g.PointerSize)

	cfg, err := g.arenaConfig()
	require.NoError(t, err)
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), cfg.ByteOrder)
	assert.Equal(t, 4, cfg.PointerSize)

	t.Setenv("PTDUMP_POINTER_SIZE", "four")
	assert.Error(t, defaultGlobalConfig().mergeEnvironment())
}

func TestArenaConfigRejects(t *testing.T) {
	g := defaultGlobalConfig()
	g.PointerSize = 3
	_, err := g.arenaConfig()
	assert.Error(t, err)

	g = defaultGlobalConfig()
	g.ByteOrder = "middle"
	_, err = g.arenaConfig()
	assert.Error(t, err)
}

func TestAddressFlag(t *testing.T) {
	var f addressFlag
	require.NoError(t, f.Set("0x1000"))
	assert.EqualValues(t, 0x1000, f)
	assert.Equal(t, "0x1000", f.String())
	require.NoError(t, f.Set("64"))
	assert.EqualValues(t, 64, f)
	assert.Error(t, f.Set("zz"))
}

func TestListCommand(t *testing.T) {
	out, err := run(t, nil, nil, "list")
	require.NoError(t, err)
	names := strings.Fields(out)
	assert.Equal(t, macheap.Names(), names)
	assert.Contains(t, names, "szone_t")
}

// vmRange is a vm_range_t at 0x10 of a dump loaded at 0x1000.
func vmRange(order binary.ByteOrder) []byte {
	data := make([]byte, 0x20)
	order.PutUint64(data[0x10:], 0x2000)
	order.PutUint64(data[0x18:], 0x40)
	return data
}

func TestDecodeCommand(t *testing.T) {
	path := writeFile(t, "dump.bin", vmRange(binary.LittleEndian))

	out, err := run(t, nil, nil, "decode", "vm_range_t", "--file", path, "--base", "0x1000", "--offset", "0x1010")
	require.NoError(t, err)
	assert.Contains(t, out, "[0x1010] vm_range_t <vm_range_t>")
	assert.Contains(t, out, "address <void*> *0x2000")
	assert.Contains(t, out, "size <size_t> 0x0000000000000040 (64)")
	assert.NotContains(t, out, "issue:")
}

func TestDecodeStdin(t *testing.T) {
	out, err := run(t, vmRange(binary.LittleEndian), nil, "decode", "vm_range_t", "--file", "-", "--offset", "0x10")
	require.NoError(t, err)
	assert.Contains(t, out, "(64)")
}

func TestDecodeUsesConfigFile(t *testing.T) {
	path := writeFile(t, "dump.bin", vmRange(binary.BigEndian))
	cfg := writeFile(t, "config.hujson", []byte("{\"byteOrder\": \"big\", /* dumps from ppc */}\n"))

	out, err := run(t, nil, []string{cfg}, "decode", "vm_range_t", "--file", path, "--offset", "0x10")
	require.NoError(t, err)
	assert.Contains(t, out, "(64)")

	out, err = run(t, nil, []string{cfg}, "--byte-order", "little", "decode", "vm_range_t", "--file", path, "--offset", "0x10")
	require.NoError(t, err)
	assert.NotContains(t, out, "(64)", "flags override the config file")
}

func TestDecodeErrors(t *testing.T) {
	path := writeFile(t, "short.bin", make([]byte, 12))

	out, err := run(t, nil, nil, "decode", "vm_range_t", "--file", path)
	assert.ErrorIs(t, err, ptypes.ErrShortRead)
	assert.Contains(t, out, "vm_range_t", "the partial tree is still printed")

	_, err = run(t, nil, nil, "decode", "no_such_t", "--file", path)
	assert.ErrorIs(t, err, ptypes.ErrNotFound)

	_, err = run(t, nil, nil, "decode", "vm_range_t")
	assert.Error(t, err)
}

func TestTinyMapCommand(t *testing.T) {
	const metaOffset = macheap.NumTinyBlocks*macheap.TinyQuantum + 32
	data := make([]byte, 0x100000)
	binary.LittleEndian.PutUint32(data[metaOffset:], 0x19)
	binary.LittleEndian.PutUint32(data[metaOffset+4:], 0x01)
	path := writeFile(t, "region.bin", data)

	out, err := run(t, nil, nil, "tiny-map", "--file", path, "--base", "0x7f0000000000", "--offset", "0x7f0000000000")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"ADDRESS", "INDEX", "MSIZE", "BYTES", "STATE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0x7f0000000000", "0", "3", "48", "in", "use"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"0x7f0000000030", "3", "1", "16", "free"}, strings.Fields(lines[2]))
	assert.Equal(t, "0x7f0000000040", strings.Fields(lines[3])[0])
}
