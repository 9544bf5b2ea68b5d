package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ElectrumEndpointKey is the endpoint of the Electrum server in the form
	// tcp://host:port, ssl://host:port, ws://host:port or wss://host:port
	ElectrumEndpointKey = "ELECTRUM_ENDPOINT"
	// NetworkKey is the network to use. Either "mainnet", "testnet" or
	// "regtest"
	NetworkKey = "NETWORK"
	// GapLimitKey is the number of consecutive unused addresses that stops
	// the chain discovery of a restored wallet
	GapLimitKey = "GAP_LIMIT"
	// DustThresholdKey is the amount in satoshis below which a change
	// output is folded into the fee instead of being created
	DustThresholdKey = "DUST_THRESHOLD"
	// SatsPerByteKey is the default fee rate used when none is given
	SatsPerByteKey = "SATS_PER_BYTE"
	// DbTypeKey is the storage backend. Either "badger" or "inmemory"
	DbTypeKey = "DB_TYPE"
	// PingIntervalKey is the interval in seconds between keepalive pings to
	// the Electrum server
	PingIntervalKey = "PING_INTERVAL"
	// CoinTypeKey is the BIP44 coin type namespace of the wallet keys
	CoinTypeKey = "COIN_TYPE"

	// DbLocation is the subdirectory of the datadir holding the db files
	DbLocation = "db"

	// MinGapLimit ...
	MinGapLimit = 1
	// MaxGapLimit ...
	MaxGapLimit = 20

	// DbTypeBadger ...
	DbTypeBadger = "badger"
	// DbTypeInMemory ...
	DbTypeInMemory = "inmemory"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("faro-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("FARO")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ElectrumEndpointKey, "ssl://electrum.blockstream.info:50002")
	vip.SetDefault(NetworkKey, "mainnet")
	vip.SetDefault(GapLimitKey, 20)
	vip.SetDefault(DustThresholdKey, 546)
	vip.SetDefault(SatsPerByteKey, 2.0)
	vip.SetDefault(DbTypeKey, DbTypeBadger)
	vip.SetDefault(PingIntervalKey, 60)
	vip.SetDefault(CoinTypeKey, 145)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetFloat ...
func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

//GetNetwork ...
func GetNetwork() *chaincfg.Params {
	switch vip.GetString(NetworkKey) {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

//GetDatadir ...
func GetDatadir() string {
	return GetString(DatadirKey)
}

//GetDbDir ...
func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	networkName := GetString(NetworkKey)
	if networkName != "mainnet" && networkName != "testnet" &&
		networkName != "regtest" {
		return fmt.Errorf(
			"network must be either 'mainnet', 'testnet' or 'regtest'",
		)
	}

	gapLimit := GetInt(GapLimitKey)
	if gapLimit < MinGapLimit || gapLimit > MaxGapLimit {
		return fmt.Errorf(
			"gap limit must be in range [%d, %d]", MinGapLimit, MaxGapLimit,
		)
	}

	dbType := GetString(DbTypeKey)
	if dbType != DbTypeBadger && dbType != DbTypeInMemory {
		return fmt.Errorf(
			"db type must be either '%s' or '%s'", DbTypeBadger, DbTypeInMemory,
		)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
