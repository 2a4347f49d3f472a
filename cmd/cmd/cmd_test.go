package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testPageSize = 4096

const textAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 \n"

func randomBytes(rng *rand.Rand, p []byte) {
	for i := range p {
		p[i] = byte(rng.Uint32())
	}
}

func randomText(rng *rand.Rand, p []byte) {
	for i := range p {
		p[i] = textAlphabet[rng.IntN(len(textAlphabet))]
	}
}

// writeArray stores a 3-disk left-symmetric array of random data in dir and
// returns the image paths in logical order with the expected virtual disk
// content.
func writeArray(t *testing.T, dir string, stripes int64) ([]string, []byte) {
	t.Helper()
	return writeNamedArray(t, dir, stripes, []string{"disk0.img", "disk1.img", "disk2.img"}, randomBytes)
}

// writeNamedArray is writeArray with the file name of every logical disk and
// the page content chosen by the caller.
func writeNamedArray(t *testing.T, dir string, stripes int64, names []string, fill func(*rand.Rand, []byte)) ([]string, []byte) {
	t.Helper()

	rng := rand.New(rand.NewPCG(1, 2))
	disks := make([][]byte, len(names))
	for i := range disks {
		disks[i] = make([]byte, stripes*testPageSize)
	}

	var data []byte
	for s := range stripes {
		stripe := raid.LeftSymmetric.Stripe(len(disks), s)
		var pages [][]byte
		for _, d := range stripe.Data {
			page := disks[d][s*testPageSize : (s+1)*testPageSize]
			fill(rng, page)
			data = append(data, page...)
			pages = append(pages, page)
		}
		raid.Parity(disks[stripe.Parity][s*testPageSize:(s+1)*testPageSize], pages...)
	}

	paths := make([]string, len(disks))
	for i, d := range disks {
		paths[i] = filepath.Join(dir, names[i])
		require.NoError(t, os.WriteFile(paths[i], d, 0644))
	}
	return paths, data
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	var out, stderr bytes.Buffer
	root := NewRootCommand(viper.New())
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&stderr)

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRestoreCommand(t *testing.T) {
	dir := t.TempDir()
	paths, data := writeArray(t, dir, 12)

	out := filepath.Join(dir, "restored.img")
	_, err := execute(t, "restore", "-p", "4k", "-o", out, paths[0], paths[1], paths[2])
	require.NoError(t, err)

	restored, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, data, restored)
}

func TestRestoreCommandCompressedFromGeometry(t *testing.T) {
	dir := t.TempDir()
	paths, data := writeArray(t, dir, 8)

	geom := filepath.Join(dir, "array.geom")
	desc := fmt.Sprintf("# test array\nd0 0 %s 0 0.03125\nd1 1 %s 0 0.03125\nd2,2,%s,0,0.03125\n", paths[0], paths[1], paths[2])
	require.NoError(t, os.WriteFile(geom, []byte(desc), 0644))

	out := filepath.Join(dir, "restored.img.zst")
	_, err := execute(t, "restore", "--page-size", "4096", "--geometry", geom, "--output", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	restored, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, data, restored)
}

func TestParityCheckCommand(t *testing.T) {
	dir := t.TempDir()
	paths, _ := writeArray(t, dir, 10)

	_, err := execute(t, "paritycheck", "-p", "4k", filepath.Join(dir, "*.img"))
	require.NoError(t, err)

	b, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	b[7*testPageSize] ^= 1
	require.NoError(t, os.WriteFile(paths[1], b, 0644))

	out, err := execute(t, "paritycheck", "-p", "4k", filepath.Join(dir, "*.img"))
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, out, "page 7: parity mismatch")
}

func TestRaidSetCommand(t *testing.T) {
	dir := t.TempDir()
	paths, _ := writeArray(t, dir, 10)

	decoy := filepath.Join(dir, "decoy.img")
	noise := make([]byte, 10*testPageSize)
	for i := range noise {
		noise[i] = byte(i*7 + i/3)
	}
	require.NoError(t, os.WriteFile(decoy, noise, 0644))

	out, err := execute(t, "raidset", "-n", "3", "-p", "4k", "--all", decoy, paths[2], paths[0], paths[1])
	require.NoError(t, err)
	require.Contains(t, out, "raid set 1:")
	require.NotContains(t, out, "raid set 2:")
	require.NotContains(t, out, decoy)
	for _, p := range paths {
		require.Contains(t, out, p)
	}
}

func TestCommandsExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	_, _ = writeNamedArray(t, dir, 12, []string{"disk0.img", "disk1.img", "disk2.img"}, randomText)
	pattern := filepath.Join(dir, "disk*.img")

	_, err := execute(t, "paritycheck", "--page-size", "4096", pattern)
	require.NoError(t, err)

	out, err := execute(t, "raidset", "-n", "3", "--page-size", "4096", pattern)
	require.NoError(t, err)
	require.Contains(t, out, "raid set 1:")

	_, err = execute(t, "order", "--page-size", "4096", pattern)
	require.NoError(t, err)

	// too few images once the pattern is expanded
	_, err = execute(t, "paritycheck", "--page-size", "4096", filepath.Join(dir, "disk[01].img"))
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = execute(t, "raidset", "-n", "3", "--page-size", "4096", filepath.Join(dir, "disk[01].img"))
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestOrderThenRestoreFromGeometry(t *testing.T) {
	dir := t.TempDir()
	// logical disks 0, 1, 2 sort as c, a, b
	paths, data := writeNamedArray(t, dir, 24, []string{"c.img", "a.img", "b.img"}, randomText)

	geom := filepath.Join(dir, "array.geom")
	out, err := execute(t, "order", "-p", "4k", "--geometry-out", geom, filepath.Join(dir, "*.img"))
	require.NoError(t, err)
	for i, p := range paths {
		require.Contains(t, out, fmt.Sprintf("disk %d: %s", i, p))
	}

	restored := filepath.Join(dir, "restored.bin")
	_, err = execute(t, "restore", "-p", "4k", "--geometry", geom, "-o", restored)
	require.NoError(t, err)

	b, err := os.ReadFile(restored)
	require.NoError(t, err)
	require.Equal(t, data, b)
}

func TestRestoreDetectsOrder(t *testing.T) {
	dir := t.TempDir()
	paths, data := writeNamedArray(t, dir, 24, []string{"c.img", "a.img", "b.img"}, randomText)

	restored := filepath.Join(dir, "restored.bin")
	_, err := execute(t, "restore", "-p", "4k", "--detect-order", "-o", restored, paths[2], paths[0], paths[1])
	require.NoError(t, err)

	b, err := os.ReadFile(restored)
	require.NoError(t, err)
	require.Equal(t, data, b)
}

func TestRestoreRejectsFillByteOutOfRange(t *testing.T) {
	dir := t.TempDir()
	paths, _ := writeArray(t, dir, 4)
	out := filepath.Join(dir, "restored.img")

	t.Setenv("RAIDRESCUE_FILL_BYTE", "300")
	_, err := execute(t, "restore", "-p", "4k", "-o", out, "--on-error", "fill", paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, errs.ErrConfiguration)
	require.NoFileExists(t, out)

	t.Setenv("RAIDRESCUE_FILL_BYTE", "238")
	_, err = execute(t, "restore", "-p", "4k", "-o", out, "--on-error", "fill", paths[0], paths[1], paths[2])
	require.NoError(t, err)
}

func TestRestoreRemovesIncompleteOutput(t *testing.T) {
	dir := t.TempDir()
	paths, _ := writeArray(t, dir, 4)
	out := filepath.Join(dir, "restored.img")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executeContext(t, ctx, "restore", "-p", "4k", "-o", out, paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, out)
}

func TestCommandsRejectInvalidOptions(t *testing.T) {
	dir := t.TempDir()
	paths, _ := writeArray(t, dir, 4)

	_, err := execute(t, "paritycheck", "-p", "1kB", paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = execute(t, "restore", "-p", "4k", paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = execute(t, "restore", "-p", "4k", "-o", "-", "--on-error", "retry", paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = execute(t, "raidset", "-n", "2", "-p", "4k", paths[0], paths[1], paths[2])
	require.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = execute(t, "order", "-p", "4k", "--ranges", "9-3", paths[0], paths[1], paths[2])
	require.Error(t, err)
}

func TestFlagValues(t *testing.T) {
	var rv rangesValue
	require.NoError(t, rv.Set("0-10,20"))
	require.Equal(t, "0-10,20", rv.String())
	require.Error(t, rv.Set("a-b"))

	var sv sizeValue
	require.NoError(t, sv.Set("64k"))
	require.Equal(t, int64(64<<10), sv.size)

	var ssv sizesValue
	require.NoError(t, ssv.Set("64k,128k"))
	require.Equal(t, "65536,131072", ssv.String())

	var lv layoutValue
	require.NoError(t, lv.Set("right-asymmetric"))
	require.Equal(t, raid.RightAsymmetric, lv.layout)
	require.Error(t, lv.Set("zigzag"))
}

func TestGetMountpoint(t *testing.T) {
	require.Equal(t, "array", getMountpoint("/tmp/array.geom"))
	require.Equal(t, "array_mnt", getMountpoint("array"))
	require.True(t, strings.HasSuffix(getMountpoint(""), "_mnt"))
}
