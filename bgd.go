// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/bitgoldsuite/bgd/internal/limits"
	"github.com/bitgoldsuite/bgd/internal/log"
	"github.com/bitgoldsuite/bgd/internal/version"
)

var (
	cfg *config
)

// winServiceMain is only invoked on Windows.  It detects when bgd is running
// as a service and reacts accordingly.
var winServiceMain func() (bool, error)

// bgdMain is the real main function for bgd.  It is necessary to work around
// the fact that deferred functions do not run when os.Exit() is called.  The
// optional serverChan parameter is mainly used by the service code to be
// notified with the server once it is setup so it can gracefully stop it when
// requested from the service control manager.
func bgdMain(serverChan chan<- *server) error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	cfg = tcfg

	// Initialize the log rotator now that the network specific log
	// directory is known.
	if err := log.InitLogRotator(filepath.Join(cfg.LogDir,
		defaultLogFilename)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the service control manager.
	interrupt := interruptListener()
	defer log.BgdLog.Info("Shutdown complete")

	// Show version and network at startup.
	log.BgdLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	log.BgdLog.Infof("Active network: %s (dividend payouts %v, cold "+
		"staking %v)", cfg.chainParams.Name,
		cfg.chainParams.DividendPayouts, cfg.chainParams.ColdStaking)

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Load the block database.
	db, err := loadBlockDB(cfg.DataDir, cfg.DbType)
	if err != nil {
		log.BgdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		log.BgdLog.Infof("Gracefully shutting down the database...")
		if err := db.Close(); err != nil {
			log.BgdLog.Errorf("Unable to close the database: %v", err)
		}
	}()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Create server and start it.  Loading the chain replays every stored
	// block, so it can take a while.
	server, err := newServer(cfg, db)
	if err != nil {
		log.BgdLog.Errorf("Unable to start server: %v", err)
		return err
	}
	defer func() {
		log.BgdLog.Infof("Gracefully shutting down the server...")
		server.Stop()
		server.WaitForShutdown()
		log.SrvrLog.Infof("Server shutdown complete")
	}()
	server.Start()
	if serverChan != nil {
		serverChan <- server
	}

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems such as the
	// service control manager.
	<-interrupt
	return nil
}

func main() {
	// Block and transaction processing can cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.  This value was arrived at with the help of profiling live
	// usage.
	debug.SetGCPercent(10)

	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Call serviceMain on Windows to handle running as a service.  When
	// the return isService flag is true, exit now since we ran as a
	// service.  Otherwise, just fall through to normal operation.
	if runtime.GOOS == "windows" {
		isService, err := winServiceMain()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if isService {
			os.Exit(0)
		}
	}

	// Work around defer not working after os.Exit()
	if err := bgdMain(nil); err != nil {
		os.Exit(1)
	}
}
