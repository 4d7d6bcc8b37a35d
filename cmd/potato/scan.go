package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Landixus/potato/internal/bledb"
	"github.com/Landixus/potato/internal/cpm"
	"github.com/Landixus/potato/internal/device"
	"github.com/Landixus/potato/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby BLE devices",
	Long: `Scan for Bluetooth Low Energy devices and display their names, addresses,
RSSI values, and advertised services.

Devices advertising the Cycling Power service are highlighted; use any part
of their name as a device_names entry in the config file.`,
	RunE: runScan,
}

var (
	scanDuration  time.Duration
	scanFormat    string
	scanPowerOnly bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().BoolVar(&scanPowerOnly, "power-only", false, "Only show devices advertising the Cycling Power service")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", scanFormat)
	}

	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := scanner.NewScanner(logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	opts := &scanner.ScanOptions{
		Duration:        scanDuration,
		DuplicateFilter: true,
	}
	if scanPowerOnly {
		opts.ServiceUUIDs = []string{cpm.ServiceUUID}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nCtrl+C pressed, cancelling scan...")
		cancel()
	}()

	progress := NewProgressPrinter("Scanning for BLE devices", "Scanning", scanDuration, "Processing results")
	progress.Start()
	defer progress.Stop()

	devices, err := s.Scan(ctx, opts, progress.Callback())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	progress.Stop()
	return displayDevices(devices)
}

func displayDevices(devices map[string]scanner.FoundDevice) error {
	if len(devices) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	devList := make([]scanner.FoundDevice, 0, len(devices))
	for _, d := range devices {
		devList = append(devList, d)
	}
	// Power meters first, then strongest signal.
	sort.Slice(devList, func(i, j int) bool {
		pi, pj := hasPowerService(devList[i]), hasPowerService(devList[j])
		if pi != pj {
			return pi
		}
		return devList[i].RSSI > devList[j].RSSI
	})

	if scanFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(devList)
	}

	return displayDeviceTable(devList)
}

func displayDeviceTable(devices []scanner.FoundDevice) error {
	highlight := color.New(color.FgGreen, color.Bold)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tSERVICES")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	for _, dev := range devices {
		name := dev.DisplayName()
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		if hasPowerService(dev) {
			name = highlight.Sprint(name)
		}

		services := make([]string, 0, len(dev.Services))
		for _, s := range dev.Services {
			services = append(services, bledb.ServiceName(s))
		}
		joined := strings.Join(services, ",")
		if len(joined) > 30 {
			joined = joined[:27] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\n", name, dev.Address, dev.RSSI, joined)
	}

	return w.Flush()
}

func hasPowerService(dev scanner.FoundDevice) bool {
	for _, s := range dev.Services {
		if device.UUIDEqual(s, cpm.ServiceUUID) {
			return true
		}
	}
	return false
}
