package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Landixus/potato/internal/bridge"
	"github.com/Landixus/potato/internal/groutine"
	"github.com/Landixus/potato/internal/keymap"
	"github.com/Landixus/potato/internal/mapping"
	"github.com/Landixus/potato/internal/pad"
	"github.com/Landixus/potato/pkg/config"
)

const gamepadName = "potato virtual gamepad"

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the power-meter bridge",
	Long: `Scan for the configured trainer, connect, and feed its power output into
a virtual game controller until interrupted with Ctrl+C.

Configuration is read from a YAML file next to the executable (created with
defaults on first run); flags override individual values for this invocation.`,
	RunE: runBridge,
}

var (
	runConfigPath     string
	runFTP            float64
	runThreshold      float64
	runDevices        []string
	runMode           string
	runDisableDpad    bool
	runKeyboard       string
	runScanTimeout    time.Duration
	runConnectTimeout time.Duration
	runQuiet          bool
)

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Config file path (default: potato.yaml next to the executable)")
	runCmd.Flags().Float64Var(&runFTP, "ftp", 0, "Functional threshold power in watts (full trigger pull)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Minimum power in watts that registers")
	runCmd.Flags().StringSliceVar(&runDevices, "devices", nil, "Trainer name substrings to match during discovery")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "Mapping mode: trigger (analog) or button (on/off)")
	runCmd.Flags().BoolVar(&runDisableDpad, "disable-dpad", false, "Disable the keyboard arrow-key passthrough")
	runCmd.Flags().StringVar(&runKeyboard, "keyboard", "", "Keyboard evdev path (default: auto-detect)")
	runCmd.Flags().DurationVar(&runScanTimeout, "scan-timeout", 0, "How long to scan for the trainer")
	runCmd.Flags().DurationVar(&runConnectTimeout, "connect-timeout", 0, "Connection establishment timeout")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress the live power readout")
}

func runBridge(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	// Ctrl+C ends the session cleanly.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nCtrl+C pressed, shutting down...")
		cancel()
	}()

	// The virtual controller must exist before anything can feed it.
	xpad, err := pad.NewXPad(gamepadName)
	if err != nil {
		return err
	}
	actuator := pad.NewActuator(xpad, logger)
	actuator.Start(ctx)
	defer func() {
		actuator.Close()
		if err := xpad.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close virtual gamepad")
		}
	}()

	startKeyboardPassthrough(ctx, cfg, actuator, logger)

	progress := NewProgressPrinter("Scanning for trainer", "Scanning",
		time.Duration(cfg.ScanTimeout), "Processing results")
	progress.Start()
	defer progress.Stop()

	session, err := newSession(cfg, actuator, logger, progress)
	if err != nil {
		return err
	}

	err = session.Run(ctx)
	if !runQuiet {
		fmt.Println() // leave the last power readout on screen
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadRunConfig loads the config file and applies flag overrides on top.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	path := runConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ftp") {
		cfg.FTP = runFTP
	}
	if flags.Changed("threshold") {
		cfg.Threshold = runThreshold
	}
	if flags.Changed("devices") {
		cfg.DeviceNames = runDevices
	}
	if flags.Changed("mode") {
		cfg.Mode = runMode
	}
	if flags.Changed("disable-dpad") {
		cfg.DisableDpad = runDisableDpad
	}
	if flags.Changed("keyboard") {
		cfg.KeyboardDevice = runKeyboard
	}
	if flags.Changed("scan-timeout") {
		cfg.ScanTimeout = config.Duration(runScanTimeout)
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = config.Duration(runConnectTimeout)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startKeyboardPassthrough starts the arrow-key D-pad feed. Keyboard capture
// is best effort: the bridge still works without steering, so setup failures
// only warn.
func startKeyboardPassthrough(ctx context.Context, cfg *config.Config, actuator *pad.Actuator, logger *logrus.Logger) {
	if cfg.DisableDpad {
		logger.Info("Keyboard passthrough disabled by configuration")
		return
	}

	var source keymap.Source
	var err error
	if cfg.KeyboardDevice != "" {
		source, err = keymap.OpenDevice(cfg.KeyboardDevice)
	} else {
		source, err = keymap.FindKeyboard()
	}
	if err != nil {
		logger.WithError(err).Warn("Keyboard passthrough unavailable, continuing without D-pad")
		fmt.Fprintln(os.Stderr, "warning: keyboard passthrough unavailable, arrow keys will not steer")
		return
	}

	passthrough := keymap.New(source, actuator, logger)
	groutine.Go(ctx, "keymap-passthrough", func(ctx context.Context) {
		defer func() {
			if err := source.Close(); err != nil {
				logger.WithError(err).Debug("Keyboard source close failed")
			}
		}()
		if err := passthrough.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("Keyboard passthrough stopped")
		}
	})
}

func newSession(cfg *config.Config, actuator *pad.Actuator, logger *logrus.Logger, progress *ProgressPrinter) (*bridge.Session, error) {
	opts := []bridge.Option{
		bridge.WithProgress(progress.Callback()),
	}
	if !runQuiet {
		mode := cfg.MappingMode()
		opts = append(opts, bridge.WithPowerCallback(func(watts int, ratio float64) {
			printPowerReadout(mode, watts, ratio)
		}))
	}

	session, err := bridge.NewSession(bridge.Config{
		DeviceNames:    cfg.DeviceNames,
		FTP:            cfg.FTP,
		Threshold:      cfg.Threshold,
		Mode:           cfg.MappingMode(),
		ScanTimeout:    time.Duration(cfg.ScanTimeout),
		ConnectTimeout: time.Duration(cfg.ConnectTimeout),
	}, actuator, logger, opts...)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// printPowerReadout overwrites a single status line with the latest sample.
func printPowerReadout(mode mapping.Mode, watts int, ratio float64) {
	if mode == mapping.ModeButton {
		state := "idle"
		if ratio > 0 {
			state = "PRESS"
		}
		fmt.Printf("\r\033[K%4d W  button %s", watts, state)
		return
	}
	fmt.Printf("\r\033[K%4d W  trigger %5.1f%%", watts, ratio*100)
}
