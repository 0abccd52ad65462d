package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/roffe/gopcr"
	"github.com/roffe/gopcr/pkg/bar"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	flagFrom = "from"
	flagTo   = "to"
	flagOut  = "out"
	flagPick = "pick"
	flagInit = "init"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep all channels and list the lineup",
	Long:  `Requests channel info for every channel, prints the ones the radio carries and optionally lets you pick one to tune to.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		from, _ := flags.GetInt(flagFrom)
		to, _ := flags.GetInt(flagTo)
		out, _ := flags.GetString(flagOut)
		pick, _ := flags.GetBool(flagPick)
		powerOn, _ := flags.GetBool(flagInit)

		a, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer a.log.Sync()

		return a.withRadio(ctx, powerOn, func(s *gopcr.Session) error {
			from, to = gopcr.ClampChannel(from), gopcr.ClampChannel(to)
			if to < from {
				return fmt.Errorf("--%s %d is below --%s %d", flagTo, to, flagFrom, from)
			}
			pb := bar.New(to-from+1, "scanning")
			lineup, err := s.Scan(ctx, from, to, func(int) { pb.Add(1) })
			pb.Finish()
			fmt.Println()
			if err != nil {
				return err
			}
			for _, rec := range lineup {
				fmt.Println(rec)
			}
			fmt.Printf("%d channels found\n", len(lineup))

			if out != "" {
				if err := writeLineup(out, lineup); err != nil {
					return err
				}
			}
			if pick && len(lineup) > 0 {
				return pickAndTune(ctx, s, lineup)
			}
			return nil
		})
	},
}

func init() {
	f := scanCmd.Flags()
	f.Int(flagFrom, gopcr.MinChannel, "first channel")
	f.Int(flagTo, gopcr.MaxChannel, "last channel")
	f.StringP(flagOut, "o", "", "write the lineup as YAML to this file")
	f.Bool(flagPick, true, "choose a channel to tune to when done")
	f.Bool(flagInit, true, "power on the radio before scanning")
	rootCmd.AddCommand(scanCmd)
}

// LineupEntry is one channel in the exported lineup file.
type LineupEntry struct {
	Number   int    `yaml:"number"`
	Name     string `yaml:"name"`
	Category string `yaml:"category,omitempty"`
	Artist   string `yaml:"artist,omitempty"`
	Title    string `yaml:"title,omitempty"`
}

func lineupEntries(lineup []*gopcr.ChannelRecord) []LineupEntry {
	out := make([]LineupEntry, 0, len(lineup))
	for _, rec := range lineup {
		out = append(out, LineupEntry{
			Number:   rec.Number,
			Name:     rec.Name(),
			Category: rec.Category(),
			Artist:   rec.Artist(),
			Title:    rec.Title(),
		})
	}
	return out
}

func writeLineup(filename string, lineup []*gopcr.ChannelRecord) error {
	b, err := yaml.Marshal(struct {
		Channels []LineupEntry `yaml:"channels"`
	}{lineupEntries(lineup)})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("write lineup: %w", err)
	}
	return nil
}

func pickAndTune(ctx context.Context, s *gopcr.Session, lineup []*gopcr.ChannelRecord) error {
	items := make([]string, len(lineup))
	for i, rec := range lineup {
		items[i] = rec.String()
	}
	prompt := promptui.Select{
		Label: "Tune to",
		Items: items,
		Size:  gopcr.PageSize,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return nil
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	rec, err := s.Tune(ctx, lineup[idx].Number)
	if err != nil {
		return err
	}
	fmt.Println("tuned to", rec)
	return nil
}
