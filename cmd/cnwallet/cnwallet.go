// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/wallet"
)

// semanticVersion is the version reported by --version.
const semanticVersion = "0.1.0"

func version() string {
	return semanticVersion
}

var cfg *config

func main() {
	// Work around defer not working after os.Exit.
	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the
// program can be exited with an error exit status.
func walletMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	loader := wallet.NewLoader(activeNet, cncrypto.NewSuite(),
		offlineNode{}, newOfflineSynchronizer(), cfg.DataDir,
		cfg.DBTimeout)

	if cfg.Create {
		return createWallet(loader)
	}
	return inspectWallet(loader)
}

// fatalf reports an error on both the log and stderr; the log may be
// rolling to a file only.
func fatalf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	log.Error(err)
	fmt.Fprintln(os.Stderr, err)
	return err
}
