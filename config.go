// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/internal/log"
	"github.com/bitgoldsuite/bgd/internal/version"
	"github.com/bitgoldsuite/bgd/mempool"
	"github.com/bitgoldsuite/bgd/sampleconfig"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/shopspring/decimal"
)

const (
	defaultConfigFilename = "bgd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "bgd.log"
	defaultDbType         = "leveldb"
	defaultMaxMempoolMB   = mempool.DefaultMaxPoolSize / 1000 / 1000
	defaultMinRelayTxFee  = "0.00001"

	dividendPayoutsNetwork = "network"
	dividendPayoutsOn      = "on"
	dividendPayoutsOff     = "off"
)

var (
	defaultHomeDir    = btcutil.AppDataDir(version.AppName, false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
	knownDbTypes      = []string{"leveldb", "pebble"}
)

// runServiceCommand is only set to a real function on Windows.  It is used
// to parse and execute service commands specified via the -s flag.
var runServiceCommand func(string) error

// config defines the configuration options for bgd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion     bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile      string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir         string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir          string   `long:"logdir" description:"Directory to log output"`
	DbType          string   `long:"dbtype" description:"Database backend to use for the block chain {leveldb, pebble}"`
	DebugLevel      string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	TestNet         bool     `long:"testnet" description:"Use the test network"`
	RegressionTest  bool     `long:"regtest" description:"Use the regression test network"`
	SimNet          bool     `long:"simnet" description:"Use the simulation test network"`
	DividendPayouts string   `long:"dividendpayouts" description:"Pay dividends from the pool at quarter boundaries {network, on, off}" choice:"network" choice:"on" choice:"off"`
	PriorityEngine  bool     `long:"priorityengine" description:"Order the mempool by fee rate, then clamped stake weight, then arrival time"`
	PriorityClamp   int64    `long:"priorityclamp" description:"Highest priority a single transaction can be credited with; also caps the stake weight, in coins, used for ordering"`
	MaxMempool      int64    `long:"maxmempool" description:"Maximum memory the mempool may use in megabytes"`
	MinRelayTxFee   string   `long:"minrelaytxfee" description:"The minimum transaction fee in coins/kB to be considered a non-zero fee"`
	RelayNonStd     bool     `long:"relaynonstd" description:"Relay non-standard transactions"`
	Staking         bool     `long:"staking" description:"Stake the outputs of the staking keys"`
	StakeKeys       []string `long:"stakekey" description:"WIF encoded private key whose outputs are staked -- May be specified multiple times"`
	ReserveBalance  string   `long:"reservebalance" description:"Amount in coins kept out of staking"`
	SplitThreshold  string   `long:"splitthreshold" description:"Coinstake value in coins below which small outputs are merged into the stake"`
	StakeWorkers    int      `long:"stakeworkers" description:"Number of kernel search workers (0 selects the number of cores)"`
	ColdStaking     string   `long:"coldstaking" description:"Hex encoded public key hash of the owner receiving the stake and rewards of staked blocks"`

	chainParams     *chaincfg.Params
	minRelayTxFee   btcutil.Amount
	reserveBalance  int64
	splitThreshold  int64
	stakeKeys       []*btcec.PrivateKey
	coldStakeScript []byte
}

// serviceOptions defines the configuration options for the daemon as a
// service on Windows.
type serviceOptions struct {
	ServiceCommand string `short:"s" long:"service" description:"Service command {install, remove, start, stop}"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// parseAmount parses a decimal coin amount into base units.  Negative
// amounts and amounts finer than one base unit are refused.
func parseAmount(option, str string) (int64, error) {
	amount, err := decimal.NewFromString(str)
	if err != nil {
		return 0, fmt.Errorf("the %s option is not a valid amount: %v",
			option, err)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("the %s option may not be negative", option)
	}
	units := amount.Mul(decimal.NewFromInt(chaincfg.Coin))
	if !units.IsInteger() {
		return 0, fmt.Errorf("the %s option has more precision than a "+
			"base unit", option)
	}
	if units.GreaterThan(decimal.NewFromInt(btcutil.MaxSatoshi)) {
		return 0, fmt.Errorf("the %s option exceeds the maximum amount",
			option)
	}
	return units.IntPart(), nil
}

// createDefaultConfigFile writes the sample configuration to destPath,
// creating its directory as needed.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	return os.WriteFile(destPath, []byte(sampleconfig.FileContents), 0600)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, so *serviceOptions, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	if runtime.GOOS == "windows" {
		parser.AddGroup("Service Options", "Service Options", so)
	}
	return parser
}

// resolveNetwork returns a copy of the parameters of the selected network.
// Multiple networks can't be selected simultaneously.
func (cfg *config) resolveNetwork() (*chaincfg.Params, error) {
	params := chaincfg.MainNetParams
	numNets := 0
	if cfg.TestNet {
		numNets++
		params = chaincfg.TestNetParams
	}
	if cfg.RegressionTest {
		numNets++
		params = chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		params = chaincfg.SimNetParams
	}
	if numNets > 1 {
		return nil, errors.New("the testnet, regtest, and simnet params " +
			"can't be used together -- choose one of the three")
	}
	return &params, nil
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in bgd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:      defaultConfigFile,
		DebugLevel:      defaultLogLevel,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		DbType:          defaultDbType,
		DividendPayouts: dividendPayoutsNetwork,
		PriorityClamp:   mempool.DefaultMaxPriority,
		MaxMempool:      defaultMaxMempoolMB,
		MinRelayTxFee:   defaultMinRelayTxFee,
		ReserveBalance:  "0",
		SplitThreshold:  "0",
	}

	// Service options which are only added on Windows.
	serviceOpts := serviceOptions{}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, &serviceOpts, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Perform service command and exit if specified.  Invalid service
	// commands show an appropriate error.  Only runs on Windows since
	// the runServiceCommand function will be nil when not on Windows.
	if serviceOpts.ServiceCommand != "" && runServiceCommand != nil {
		err := runServiceCommand(serviceOpts.ServiceCommand)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(0)
	}

	// Create a default config file when one does not exist and the user
	// did not specify an override.
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
			err := createDefaultConfigFile(preCfg.ConfigFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating a default "+
					"config file: %v\n", err)
			}
		}
	}

	// Load additional config from file.  A missing file is not an error.
	parser := newConfigParser(&cfg, &serviceOpts, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}

// validate checks the parsed options and derives the values the daemon runs
// with from them.
func (cfg *config) validate() error {
	params, err := cfg.resolveNetwork()
	if err != nil {
		return err
	}
	switch cfg.DividendPayouts {
	case dividendPayoutsOn:
		params.DividendPayouts = true
	case dividendPayoutsOff:
		params.DividendPayouts = false
	}
	cfg.chainParams = params

	// Append the network type to the data and log directories so they
	// are "namespaced" per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), params.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), params.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}
	if err := log.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	if !validDbType(cfg.DbType) {
		return fmt.Errorf("the specified database type [%v] is invalid "+
			"-- supported types %v", cfg.DbType, knownDbTypes)
	}

	if cfg.PriorityClamp < 1 {
		return fmt.Errorf("the priorityclamp option must be at least 1 "+
			"-- parsed [%d]", cfg.PriorityClamp)
	}
	if cfg.MaxMempool < 1 {
		return fmt.Errorf("the maxmempool option must be at least 1 MB "+
			"-- parsed [%d]", cfg.MaxMempool)
	}

	minRelayTxFee, err := parseAmount("minrelaytxfee", cfg.MinRelayTxFee)
	if err != nil {
		return err
	}
	cfg.minRelayTxFee = btcutil.Amount(minRelayTxFee)

	if cfg.reserveBalance, err = parseAmount("reservebalance",
		cfg.ReserveBalance); err != nil {
		return err
	}
	if cfg.splitThreshold, err = parseAmount("splitthreshold",
		cfg.SplitThreshold); err != nil {
		return err
	}

	for _, encoded := range cfg.StakeKeys {
		wif, err := btcutil.DecodeWIF(encoded)
		if err != nil {
			return fmt.Errorf("the stakekey option is not a valid WIF "+
				"private key: %v", err)
		}
		if !wif.CompressPubKey {
			return errors.New("the stakekey option requires keys for " +
				"compressed public keys")
		}
		cfg.stakeKeys = append(cfg.stakeKeys, wif.PrivKey)
	}
	if cfg.Staking && len(cfg.stakeKeys) == 0 {
		return errors.New("the staking option requires at least one " +
			"stakekey")
	}

	if cfg.ColdStaking != "" {
		if !params.ColdStaking {
			return fmt.Errorf("cold staking is not permitted on %s",
				params.Name)
		}
		pubKeyHash, err := hex.DecodeString(cfg.ColdStaking)
		if err != nil || len(pubKeyHash) != 20 {
			return errors.New("the coldstaking option must be a hex " +
				"encoded 20 byte public key hash")
		}
		cfg.coldStakeScript, err = stake.PayToPubKeyHashScript(pubKeyHash)
		if err != nil {
			return err
		}
	}

	return nil
}
