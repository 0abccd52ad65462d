package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/roffe/gopcr"
	"github.com/roffe/gopcr/pkg/config"
	"github.com/roffe/gopcr/pkg/logging"
	"github.com/roffe/gopcr/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "gopcr",
	Short: "XM PCR tuner control",
	Long: `Control an XM PCR satellite radio tuner over its USB serial link.

With no flags the radio is powered on and the channel list is shown.
  -p <channel>  power on, select channel and exit
  -c <channel>  select channel on an already running radio and exit
  -g            show the channel list without powering on`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			cmd.PrintErrln(cmd.UsageString())
			return fmt.Errorf("unknown arguments: %v", args)
		}
		return nil
	},
	RunE: runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		rootCmd.PrintErrln("error:", err)
		return err
	}
	return nil
}

const (
	flagPort        = "port"
	flagBaudrate    = "baudrate"
	flagDebug       = "debug"
	flagAdapter     = "adapter"
	flagConfig      = "config"
	flagLogFile     = "log-file"
	flagLogLevel    = "log-level"
	flagMetricsAddr = "metrics-addr"

	flagPowerOn = "power-on"
	flagChannel = "channel"
	flagGUIOnly = "gui"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "P", "*", "com-port, * = first FTDI port")
	pf.IntP(flagBaudrate, "b", gopcr.DefaultBaudrate, "baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.StringP(flagAdapter, "a", "XM PCR VCP", "what adapter to use")
	pf.String(flagConfig, "", "config file (default ./gopcr.yaml)")
	pf.String(flagLogFile, "", "log file")
	pf.String(flagLogLevel, "", "log level: debug, info, warn, error")
	pf.String(flagMetricsAddr, "", "serve prometheus metrics on this address")

	f := rootCmd.Flags()
	f.IntP(flagPowerOn, "p", 0, "power on, then select channel")
	f.IntP(flagChannel, "c", 0, "select channel without powering on")
	f.BoolP(flagGUIOnly, "g", false, "start the channel list without powering on")
	rootCmd.MarkFlagsMutuallyExclusive(flagPowerOn, flagChannel, flagGUIOnly)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.PrintErrln(cmd.UsageString())
		return err
	})
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	oneShot := flags.Changed(flagPowerOn) || flags.Changed(flagChannel)
	var stderr io.Writer
	if oneShot {
		stderr = os.Stderr
	}
	a, err := setup(cmd, stderr)
	if err != nil {
		return err
	}
	defer a.log.Sync()

	switch {
	case flags.Changed(flagPowerOn):
		n, _ := flags.GetInt(flagPowerOn)
		return a.tune(ctx, n, true)
	case flags.Changed(flagChannel):
		n, _ := flags.GetInt(flagChannel)
		return a.tune(ctx, n, false)
	}

	gui, _ := flags.GetBool(flagGUIOnly)
	return a.runUI(ctx, !gui)
}

// app is what every command needs after flags and config are parsed.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

// setup loads the configuration, applies command line overrides and builds
// the logger. stderr, when not nil, gets a copy of the log for one-shot
// commands.
func setup(cmd *cobra.Command, stderr io.Writer) (*app, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString(flagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flags.Changed(flagPort) {
		cfg.Device.Port, _ = flags.GetString(flagPort)
	}
	if flags.Changed(flagBaudrate) {
		cfg.Device.Baudrate, _ = flags.GetInt(flagBaudrate)
	}
	if flags.Changed(flagAdapter) {
		cfg.Device.Adapter, _ = flags.GetString(flagAdapter)
	}
	if flags.Changed(flagDebug) {
		cfg.Device.Debug, _ = flags.GetBool(flagDebug)
		if cfg.Device.Debug {
			cfg.Logging.Level = "debug"
		}
	}
	if flags.Changed(flagLogFile) {
		cfg.Logging.File.Filename, _ = flags.GetString(flagLogFile)
	}
	if flags.Changed(flagLogLevel) {
		cfg.Logging.Level, _ = flags.GetString(flagLogLevel)
	}
	if flags.Changed(flagMetricsAddr) {
		cfg.Metrics.Addr, _ = flags.GetString(flagMetricsAddr)
	}

	var extra []io.Writer
	if stderr != nil {
		extra = append(extra, stderr)
	}
	log, err := logging.InitLogger(cfg.Logging, extra...)
	if err != nil {
		return nil, err
	}
	reg := metrics.NewRegistry()
	return &app{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: metrics.New(reg),
	}, nil
}

// openSession creates the adapter and session and opens the transport.
func (a *app) openSession(ctx context.Context) (*gopcr.Session, error) {
	adapter, err := gopcr.NewAdapter(a.cfg.Device.Adapter, &gopcr.AdapterConfig{
		Debug:        a.cfg.Device.Debug,
		Port:         a.cfg.Device.Port,
		PortBaudrate: a.cfg.Device.Baudrate,
		OnMessage: func(msg string) {
			a.log.Info(msg, zap.String("adapter", a.cfg.Device.Adapter))
		},
	})
	if err != nil {
		return nil, err
	}
	s, err := gopcr.NewSession(adapter,
		gopcr.OptConfig(a.cfg.ToEngine()),
		gopcr.OptLogger(a.log),
		gopcr.OptMetrics(a.metrics),
		gopcr.OptWindow(a.cfg.UI.Top, a.cfg.UI.Selected),
	)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// withRadio opens a session, optionally runs the startup handshake and hands
// it to fn. The session is closed afterwards.
func (a *app) withRadio(ctx context.Context, powerOn bool, fn func(*gopcr.Session) error) error {
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	if powerOn {
		if _, err := s.Initialize(ctx); err != nil {
			return err
		}
	}
	return fn(s)
}

func (a *app) tune(ctx context.Context, n int, powerOn bool) error {
	return a.withRadio(ctx, powerOn, func(s *gopcr.Session) error {
		rec, err := s.Tune(ctx, n)
		if err != nil {
			if gopcr.IsKind(err, gopcr.KindChannelUnknown) {
				fmt.Printf("tuned to %03d (no channel info)\n", gopcr.ClampChannel(n))
				return nil
			}
			return err
		}
		fmt.Println(rec)
		return nil
	})
}
