// Command attgattctl is a small inspection and smoke-test tool for the
// attgatt engine. It builds a sample attribute database in-process (no
// radio involved) and either prints its layout or replays the engine's
// documented request/response scenarios against it.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nullgrid/attgatt"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "attgattctl",
	Short: "Inspect and smoke-test the attgatt ATT/GATT engine",
	Long: `attgattctl builds a sample GATT database entirely in memory and
exercises it without any HCI or L2CAP transport:

  attgattctl table      print the built-in sample database's attribute layout
  attgattctl selftest    replay the engine's documented byte-exact scenarios`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		levelStr, _ := cmd.Flags().GetString("log-level")
		level, err := logrus.ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
		log.SetLevel(level)
		return nil
	}
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(selftestCmd)
}

// sampleServer builds a demo Battery Service + Heart Rate Measurement
// database, the same shape used by the package's own tests.
func sampleServer() *attgatt.Server {
	srv := attgatt.NewServer("attgattctl-demo", noopSender{}, 64)

	battery := srv.AddService(attgatt.UUID16(0x180F))
	battery.AddCharacteristicReadOnly(
		attgatt.UUID16(0x2A19),
		attgatt.PropRead|attgatt.PropNotify,
		attgatt.NewFixedValue([]byte{100}),
	)
	battery.Build()

	heartRate := srv.AddService(attgatt.UUID16(0x180D))
	heartRate.AddCharacteristicReadOnly(
		attgatt.UUID16(0x2A37),
		attgatt.PropNotify,
		attgatt.NewFixedValue([]byte{0x00, 0x48}),
	)
	heartRate.Build()

	srv.Build()
	return srv
}

type noopSender struct{}

func (noopSender) Send(attgatt.ConnHandle, []byte) error { return nil }

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the sample database's attribute layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := sampleServer()
		table := srv.Table()
		table.Lock()
		defer table.Unlock()

		header := color.New(color.Bold)
		header.Println("handle  group-end  kind          uuid")
		for _, a := range table.Attrs() {
			fmt.Printf("0x%04X  0x%04X     %-12s  %s\n",
				a.Handle, a.LastHandleInGroup, a.KindString(), a.UUID.String())
		}
		return nil
	},
}

type scenario struct {
	name string
	req  []byte
	want []byte
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Replay the engine's documented byte-exact scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := attgatt.NewAttributeTable(16)
		subs := attgatt.NewSubscriptionRegistry()
		disp := attgatt.NewDispatcher(table, subs)
		conn := attgatt.ConnHandle(1)

		svc := table.AddService(attgatt.UUID16(0x180D))
		svc.AddCharacteristic(attgatt.UUID16(0x2A37), attgatt.PropRead|attgatt.PropNotify,
			attgatt.NewFixedValue([]byte{0x00, 0x48})) // decl=2, value=3, cccd=4
		svc.AddCharacteristicReadOnly(attgatt.UUID16(0x2A38), attgatt.PropRead,
			attgatt.NewFixedValue([]byte{0x01})) // decl=5, value=6
		svc.Build()

		scenarios := []scenario{
			{"S1 read CCCD unset", []byte{0x0A, 0x04, 0x00}, []byte{0x0B, 0x00, 0x00}},
			{"S2 enable notifications", []byte{0x12, 0x04, 0x00, 0x01, 0x00}, []byte{0x13}},
			{"S2 read CCCD enabled", []byte{0x0A, 0x04, 0x00}, []byte{0x0B, 0x01, 0x00}},
			{"S5 write not permitted", []byte{0x12, 0x06, 0x00, 0xAA}, []byte{0x01, 0x12, 0x06, 0x00, 0x03}},
		}

		failed := 0
		for _, sc := range scenarios {
			got := disp.Process(conn, sc.req, 247)
			if !bytesEqual(got, sc.want) {
				failed++
				fmt.Printf("%s %-28s want % X got % X\n", color.RedString("FAIL"), sc.name, sc.want, got)
				continue
			}
			fmt.Printf("%s %-28s % X\n", color.GreenString("OK  "), sc.name, got)
		}

		log.WithField("failed", failed).Info("selftest complete")
		if failed > 0 {
			return fmt.Errorf("%d scenario(s) failed", failed)
		}
		return nil
	},
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
