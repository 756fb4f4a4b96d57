package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	webrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key.
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the
	// Badger database.
	DefaultBadgerFile = "badger_db"

	// DefaultCertFile is the default name of the file containing the TLS
	// certificate for connecting to the signaling server.
	DefaultCertFile = "cert.pem"
)

// Default configuration values, mirroring the constants named throughout
// the neighbourhood/poolsync/scheduler/rendezvous design.
const (
	DefaultLogLevel = "debug"
	DefaultBindAddr = "127.0.0.1:1337"

	// DefaultMaxNeighbours is the maximum number of gossip neighbours a
	// node maintains at once.
	DefaultMaxNeighbours = 256
	// DefaultMinNeighbours is the floor below which the neighbourhood
	// actively seeks new connections.
	DefaultMinNeighbours = 3
	// DefaultMaxConnections is the default of Config.MaxConnections.
	DefaultMaxConnections = 64
	// DefaultMaxMessagesToKeep is the size of the per-connection MsgRel
	// FIFO dedup map.
	DefaultMaxMessagesToKeep = 128
	// DefaultMaxResendTimes is how many times a packet is retransmitted
	// before the recipient is struck.
	DefaultMaxResendTimes = 4
	// DefaultMaxSyncAttempts bounds retries of a single sync request.
	DefaultMaxSyncAttempts = 8
	// DefaultBlocksToSync is the max number of sequences the pool
	// synchronizer keeps outstanding at once, across all neighbours.
	DefaultBlocksToSync = 16
	// DefaultWarnsBeforeRefill is how many rounds a requested sequence
	// may age before it is reassigned.
	DefaultWarnsBeforeRefill = 8
	// DefaultStrikesUntilBlackList is the strike count at which a peer is
	// black-listed. Resolved Open Question: not specified explicitly by
	// the original, defaults to 16 (twice WarnsBeforeRefill).
	DefaultStrikesUntilBlackList = 16
	// DefaultRendezvousWait is the base period of the node's sync check,
	// equal to rendezvous.DefaultWait.
	DefaultRendezvousWait = 30 * time.Millisecond
	// DefaultSyncStallThreshold multiplies DefaultRendezvousWait into the
	// node's sync-check period (600ms by default).
	DefaultSyncStallThreshold = 20

	DefaultTCPTimeout       = 1000 * time.Millisecond
	DefaultStore            = false
	DefaultWebRTC           = false
	DefaultSignalAddr       = "127.0.0.1:2443"
	DefaultSignalRealm      = "main"
	DefaultSignalSkipVerify = false
	DefaultICEAddress       = "stun:stun.l.google.com:19302"
	DefaultICEUsername      = ""
	DefaultICEPassword      = ""
)

// Config contains all the configuration properties of a csnode.
type Config struct {
	// DataDir is the top-level directory containing node configuration and
	// data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port this node listens on for
	// incoming connections when not using WebRTC.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to
	// other nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// TCPTimeout is the timeout of gossip connections. It also applies to
	// WebRTC data-channel writes.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// MaxNeighbours is the ceiling on the neighbourhood's connected
	// gossip peers. The neighbourhood does not read this field; it caps
	// its active set with the neighbourhood.MaxNeighbours constant.
	MaxNeighbours int `mapstructure:"max-neighbours"`

	// MinNeighbours is the floor that triggers active peer discovery. The
	// neighbourhood does not read this field.
	MinNeighbours int `mapstructure:"min-neighbours"`

	// MaxConnections is the number of peer identities to track. The
	// neighbourhood does not read this field; it bounds its tracked peers
	// with the neighbourhood.MaxConnections constant (1024).
	MaxConnections int `mapstructure:"max-connections"`

	// MaxMessagesToKeep sizes the per-connection MsgRel dedup map. The
	// neighbourhood does not read this field; it sizes each map with the
	// neighbourhood.MaxMessagesToKeep constant.
	MaxMessagesToKeep int `mapstructure:"max-messages-to-keep"`

	// MaxResendTimes bounds packet retransmission before a strike. The
	// neighbourhood does not read this field; it uses the
	// neighbourhood.MaxResendTimes constant.
	MaxResendTimes int `mapstructure:"max-resend-times"`

	// MaxSyncAttempts bounds how many times a single requested sequence
	// is reassigned after timing out before it is dropped from the
	// outstanding set; the next window refill requests it again.
	MaxSyncAttempts int `mapstructure:"max-sync-attempts"`

	// BlocksToSync is the maximum number of sequences the pool
	// synchronizer keeps outstanding at once, across all neighbours.
	BlocksToSync int `mapstructure:"blocks-to-sync"`

	// WarnsBeforeRefill is how many rounds a requested sequence may age
	// before it is reassigned.
	WarnsBeforeRefill int `mapstructure:"warns-before-refill"`

	// StrikesUntilBlackList is the strike count at which a peer is
	// black-listed and no longer selected. The neighbourhood does not read
	// this field; it uses the neighbourhood.StrikesUntilBlackList constant.
	StrikesUntilBlackList int `mapstructure:"strikes-until-blacklist"`

	// RendezvousWait is the base period of the node's periodic sync
	// check, which runs every RendezvousWait * SyncStallThreshold. No
	// rendezvous.DumbCv is built from it.
	RendezvousWait time.Duration `mapstructure:"rendezvous-wait"`

	// SyncStallThreshold multiplies RendezvousWait into the period of the
	// node's sync check. Rounds without sync progress are not counted, and
	// no warning or neighbour re-selection is driven by this value.
	SyncStallThreshold int `mapstructure:"sync-stall-threshold"`

	// Store activates persistent (Badger) storage. When false, the node
	// uses an in-memory BlockChain.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Moniker defines the friendly name of this node.
	Moniker string `mapstructure:"moniker"`

	// WebRTC determines whether to use a WebRTC transport instead of
	// plain TCP framing. WebRTC relies on a signalling server whose
	// address is SignalAddr. When WebRTC is enabled, BindAddr and
	// AdvertiseAddr are ignored.
	WebRTC bool `mapstructure:"webrtc"`

	// SignalAddr is the IP:PORT of the WebRTC signaling server. Ignored
	// when WebRTC is not enabled.
	SignalAddr string `mapstructure:"signal-addr"`

	// SignalRealm is an administrative domain within the signaling
	// server; signaling messages are only routed within a realm.
	SignalRealm string `mapstructure:"signal-realm"`

	// SignalSkipVerify controls whether the signal client verifies the
	// server's certificate chain and host name. Testing only.
	SignalSkipVerify bool `mapstructure:"signal-skip-verify"`

	// ICEAddress is the URI of a STUN/TURN server used for NAT traversal.
	ICEAddress string `mapstructure:"ice-addr"`

	// ICEUsername authenticates with the ICE server in ICEAddress.
	ICEUsername string `mapstructure:"ice-username"`

	// ICEPassword authenticates with the ICE server in ICEAddress.
	ICEPassword string `mapstructure:"ice-password"`

	// Key is the node's secp256k1 private key.
	Key *keys.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:               DefaultDataDir(),
		LogLevel:              DefaultLogLevel,
		BindAddr:              DefaultBindAddr,
		TCPTimeout:            DefaultTCPTimeout,
		MaxNeighbours:         DefaultMaxNeighbours,
		MinNeighbours:         DefaultMinNeighbours,
		MaxConnections:        DefaultMaxConnections,
		MaxMessagesToKeep:     DefaultMaxMessagesToKeep,
		MaxResendTimes:        DefaultMaxResendTimes,
		MaxSyncAttempts:       DefaultMaxSyncAttempts,
		BlocksToSync:          DefaultBlocksToSync,
		WarnsBeforeRefill:     DefaultWarnsBeforeRefill,
		StrikesUntilBlackList: DefaultStrikesUntilBlackList,
		RendezvousWait:        DefaultRendezvousWait,
		SyncStallThreshold:    DefaultSyncStallThreshold,
		Store:                 DefaultStore,
		DatabaseDir:           DefaultDatabaseDir(),
		WebRTC:                DefaultWebRTC,
		SignalAddr:            DefaultSignalAddr,
		SignalRealm:           DefaultSignalRealm,
		SignalSkipVerify:      DefaultSignalSkipVerify,
		ICEAddress:            DefaultICEAddress,
		ICEUsername:           DefaultICEUsername,
		ICEPassword:           DefaultICEPassword,
	}
}

// NewTestConfig returns a config object with default values and a logger
// that routes through testing.T.Log.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level data directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory was explicitly overridden, it is left untouched.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CertFile returns the full path of the file containing the signal-server
// TLS certificate.
func (c *Config) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// ICEServers returns a single-entry ICE server list built from the
// password-based configuration fields.
func (c *Config) ICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs:           []string{c.ICEAddress},
			Username:       c.ICEUsername,
			Credential:     c.ICEPassword,
			CredentialType: webrtc.ICECredentialTypePassword,
		},
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "csnode".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "csnode")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir returns the default directory name for top-level node
// config, based on the underlying OS.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, ".Csnode")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Csnode")
	default:
		return filepath.Join(home, ".csnode")
	}
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}

// DefaultICEServers returns the default ICE configuration pointing at a
// public Google STUN server.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{DefaultICEAddress},
		},
	}
}
