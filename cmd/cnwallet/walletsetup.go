// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/wallet"
	"github.com/cnsuite/cnwallet/walletseed"
)

// promptPassphrase reads a passphrase from stdin.  With confirm set the
// passphrase must be entered twice and both entries must match.
func promptPassphrase(reader *bufio.Reader, prompt string, confirm bool) ([]byte, error) {
	for {
		fmt.Printf("%s: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		passphrase := strings.TrimRight(line, "\r\n")
		if passphrase == "" {
			fmt.Println("The passphrase must not be empty.")
			continue
		}
		if !confirm {
			return []byte(passphrase), nil
		}

		fmt.Print("Confirm passphrase: ")
		line, err = reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if passphrase != strings.TrimRight(line, "\r\n") {
			fmt.Println("The entered passphrases do not match.")
			continue
		}
		return []byte(passphrase), nil
	}
}

// createWallet prompts the user for a passphrase and creates the wallet
// database, either with a fresh deterministic account or, when a seed
// mnemonic was given, by recovering an existing one.
func createWallet(loader *wallet.Loader) error {
	exists, err := loader.WalletExists()
	if err != nil {
		return fatalf("unable to check for wallet database: %v", err)
	}
	if exists {
		return fatalf("the wallet database already exists in %q",
			cfg.DataDir)
	}

	reader := bufio.NewReader(os.Stdin)
	passphrase, err := promptPassphrase(reader,
		"Enter the private passphrase for your new wallet", true)
	if err != nil {
		return err
	}

	var w *wallet.Wallet
	if cfg.Seed != "" {
		seed, err := walletseed.DecodeMnemonic(cfg.Seed)
		if err != nil {
			return fatalf("invalid seed mnemonic: %v", err)
		}
		w, err = loader.RecoverWallet(passphrase,
			cncrypto.SecretKey(*seed))
		if err != nil {
			return fatalf("unable to recover wallet: %v", err)
		}
	} else {
		w, err = loader.CreateNewWallet(passphrase)
		if err != nil {
			return fatalf("unable to create wallet: %v", err)
		}
	}

	address, err := w.Address()
	if err != nil {
		return fatalf("unable to read wallet address: %v", err)
	}
	fmt.Println("Wallet address:", address)

	if cfg.Seed == "" {
		mnemonic, err := w.GetSeed()
		if err != nil {
			return fatalf("unable to read wallet seed: %v", err)
		}
		fmt.Println()
		fmt.Println("Your wallet recovery seed is:")
		fmt.Println()
		fmt.Println(mnemonic)
		fmt.Println()
		fmt.Println("IMPORTANT: Keep the seed in a safe place as you " +
			"will NOT be able to restore your wallet without it.")
		fmt.Println()
	}

	if err := loader.UnloadWallet(); err != nil {
		return fatalf("unable to close wallet: %v", err)
	}
	fmt.Println("The wallet has been created successfully.")
	return nil
}

// inspectWallet opens an existing wallet database and prints its address
// and ledger summary, plus the key material when --dumpkeys was given.
func inspectWallet(loader *wallet.Loader) error {
	exists, err := loader.WalletExists()
	if err != nil {
		return fatalf("unable to check for wallet database: %v", err)
	}
	if !exists {
		return fatalf("no wallet database in %q; create one with --create",
			cfg.DataDir)
	}

	reader := bufio.NewReader(os.Stdin)
	passphrase, err := promptPassphrase(reader,
		"Enter the private passphrase of your wallet", false)
	if err != nil {
		return err
	}

	w, err := loader.OpenExistingWallet(passphrase)
	if err != nil {
		if wallet.IsError(err, wallet.ErrWrongPassword) {
			return fatalf("the entered passphrase is incorrect")
		}
		return fatalf("unable to open wallet: %v", err)
	}
	defer func() {
		if err := loader.UnloadWallet(); err != nil {
			log.Warnf("Unable to close wallet cleanly: %v", err)
		}
	}()

	address, err := w.Address()
	if err != nil {
		return fatalf("unable to read wallet address: %v", err)
	}
	txCount, err := w.TransactionCount()
	if err != nil {
		return fatalf("unable to read ledger: %v", err)
	}
	transferCount, err := w.TransferCount()
	if err != nil {
		return fatalf("unable to read ledger: %v", err)
	}
	depositCount, err := w.DepositCount()
	if err != nil {
		return fatalf("unable to read ledger: %v", err)
	}
	tracking, err := w.IsTrackingWallet()
	if err != nil {
		return fatalf("unable to read wallet keys: %v", err)
	}

	fmt.Println("Wallet address:", address)
	fmt.Printf("Ledger: %d transactions, %d transfers, %d deposits\n",
		txCount, transferCount, depositCount)
	if tracking {
		fmt.Println("This is a tracking wallet; it cannot spend.")
	}

	if cfg.DumpKeys {
		keys, err := w.GetAccountKeys()
		if err != nil {
			return fatalf("unable to read wallet keys: %v", err)
		}
		fmt.Printf("Spend public key: %x\n", keys.SpendPublicKey[:])
		fmt.Printf("View public key:  %x\n", keys.ViewPublicKey[:])
		if !tracking {
			fmt.Printf("Spend secret key: %x\n", keys.SpendSecretKey[:])
		}
		fmt.Printf("View secret key:  %x\n", keys.ViewSecretKey[:])

		if mnemonic, err := w.GetSeed(); err == nil {
			fmt.Println("Seed mnemonic:", mnemonic)
		}
	}
	return nil
}
