package main

import (
	"encoding/json"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuackproxy/cuackproxy/internal/doctor"
	"github.com/cuackproxy/cuackproxy/internal/netid"
	"github.com/cuackproxy/cuackproxy/internal/runner"
	"github.com/cuackproxy/cuackproxy/internal/tor"
)

// doctorProbeTimeout bounds the SOCKS5 probe.
const doctorProbeTimeout = 5 * time.Second

// errDoctorFailed is returned when at least one check fails.
var errDoctorFailed = errors.New("doctor: one or more checks failed")

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this host can run CuackProxy",
		Long: `Doctor checks the platform and privileges, the tor, pgrep, ifconfig and
ip commands, the Tor control cookie, the error log key and the SOCKS5 proxy,
and suggests fixes for anything missing.

Examples:
  cuackproxy doctor
  cuackproxy doctor -i wlan0
  cuackproxy doctor --json`,
		Args: cobra.NoArgs,
		RunE: runDoctorCmd,
	}

	cmd.Flags().StringP("interface", "i", "", "Also check this network interface")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

func runDoctorCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Verbose)

	iface, err := cmd.Flags().GetString("interface")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	r := runner.NewExec()
	opts := doctor.Options{
		GOOS:       runtime.GOOS,
		EUID:       os.Geteuid(),
		Runner:     r,
		TorBinary:  cfg.TorBinary,
		MAC:        netid.NewRandomizer(r, netid.WithLogger(logger)),
		Interface:  iface,
		CookieFile: cfg.CookieFile,
		KeyFile:    cfg.KeyFile,
	}
	if client, err := tor.NewClient(cfg.ProxyAddress(), doctorProbeTimeout); err == nil {
		opts.Proxy = client
	}

	res := doctor.Run(cmd.Context(), opts)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		doctor.Print(out, res)
	}

	if res.Status == doctor.StatusFail {
		return errDoctorFailed
	}
	return nil
}
