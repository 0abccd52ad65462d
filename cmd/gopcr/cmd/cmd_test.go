package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roffe/gopcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteLineup(t *testing.T) {
	file := filepath.Join(t.TempDir(), "lineup.yaml")
	lineup := []*gopcr.ChannelRecord{
		{Number: 8, Fields: [4]string{"The 80s", "Decades", "Duran Duran", "Rio"}},
		{Number: 171, Fields: [4]string{"Traffic", "Info", "", "Metro"}},
	}
	require.NoError(t, writeLineup(file, lineup))

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	var got struct {
		Channels []LineupEntry `yaml:"channels"`
	}
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, []LineupEntry{
		{Number: 8, Name: "The 80s", Category: "Decades", Artist: "Duran Duran", Title: "Rio"},
		{Number: 171, Name: "Traffic", Category: "Info", Title: "Metro"},
	}, got.Channels)
	assert.NotContains(t, string(b), "artist: \"\"")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatal(wdErr)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute(context.Background())
	return out.String(), err
}

func TestRootRejectsArguments(t *testing.T) {
	out, err := execute(t, "bogus")
	require.Error(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "error: unknown arguments")
}

func TestRootPowerOnAndTune(t *testing.T) {
	_, err := execute(t, "-a", "Virtual", "--log-file", "", "-p", "47")
	require.NoError(t, err)
}
