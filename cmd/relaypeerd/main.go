// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"
	"github.com/bitmark-inc/relaynode/background"
	"github.com/bitmark-inc/relaynode/configuration"
	"github.com/bitmark-inc/relaynode/discovery"
	"github.com/bitmark-inc/relaynode/statspublisher"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = binVersion

func main() {
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, _, err := getoptions.GetOS(flags)
	if err != nil {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		fmt.Printf("%s: version %s\n", program, version)
		return
	}

	if len(options["help"]) > 0 {
		fmt.Printf("usage: %s -c <config-file> [-v] [-q]\n", program)
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: exactly one config-file option is required", program)
	}

	cfg, err := configuration.GetConfiguration(options["config-file"][0])
	if err != nil {
		exitwithstatus.Message("%s: failed to read configuration: %s", program, err)
	}

	cfg.Logging.Console = len(options["quiet"]) == 0
	if err := logger.Initialise(cfg.Logging); err != nil {
		exitwithstatus.Message("%s: logger setup failed: %s", program, err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	if cfg.PidFile != "" {
		lockFile, err := os.OpenFile(cfg.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file %q creation failed: %s", program, cfg.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(cfg.PidFile)
	}

	pub, err := statspublisher.New(cfg.StatsPublish)
	if err != nil {
		log.Criticalf("stats publisher initialise error: %s", err)
		exitwithstatus.Message("stats publisher initialise error: %s", err)
	}

	var refresher *discovery.Refresher
	processes := background.Processes{}
	if cfg.DiscoveryDomain != "" {
		refresher, err = discovery.NewRefresher(cfg.DiscoveryDomain)
		if err != nil {
			log.Errorf("discovery initialise error: %s (continuing with configured peers only)", err)
		} else {
			processes = append(processes, refresher.Run)
		}
	}
	processes = append(processes, pub.Run, newRelayLog().Run)
	bg := background.Start(processes, nil)
	defer background.Stop(bg)

	c := newConnector(pub)
	for _, listenAddress := range cfg.Listen {
		if err := c.listen(listenAddress); err != nil {
			log.Criticalf("listen on %q failed: %s", listenAddress, err)
			exitwithstatus.Message("listen on %q failed: %s", listenAddress, err)
		}
	}
	c.dialAll(cfg, refresher)

	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	log.Info("shutting down…")
}
