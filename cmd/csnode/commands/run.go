package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/node"
)

// NewRunCmd returns the command that starts a csnode.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a node",
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	addRunFlags(cmd)
	return cmd
}

func runNode(cmd *cobra.Command, args []string) error {
	key, err := keys.NewSimpleKeyfile(cliConfig.Keyfile()).ReadKey()
	if err != nil {
		return fmt.Errorf("reading private key from %s (run `csnode keygen` first): %w", cliConfig.Keyfile(), err)
	}
	cliConfig.Key = key

	n, err := node.New(cliConfig)
	if err != nil {
		return fmt.Errorf("initializing node: %w", err)
	}

	n.Run()
	return nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", cliConfig.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", cliConfig.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("moniker", cliConfig.Moniker, "Optional name")

	cmd.Flags().StringP("listen", "l", cliConfig.BindAddr, "Listen IP:Port")
	cmd.Flags().StringP("advertise", "a", cliConfig.AdvertiseAddr, "Advertise IP:Port")
	cmd.Flags().DurationP("timeout", "t", cliConfig.TCPTimeout, "Gossip connection timeout")

	cmd.Flags().Int("max-neighbours", cliConfig.MaxNeighbours, "Maximum number of gossip neighbours")
	cmd.Flags().Int("min-neighbours", cliConfig.MinNeighbours, "Floor that triggers active peer discovery")
	cmd.Flags().Int("max-connections", cliConfig.MaxConnections, "Maximum number of tracked peer identities")
	cmd.Flags().Int("max-resend-times", cliConfig.MaxResendTimes, "Retransmissions before a peer is struck")
	cmd.Flags().Int("max-sync-attempts", cliConfig.MaxSyncAttempts, "Timeout reassignments of a sequence before it is dropped")
	cmd.Flags().Int("blocks-to-sync", cliConfig.BlocksToSync, "Maximum sequences outstanding during sync")
	cmd.Flags().Int("warns-before-refill", cliConfig.WarnsBeforeRefill, "Rounds a block request may age before reassignment")
	cmd.Flags().Int("strikes-until-blacklist", cliConfig.StrikesUntilBlackList, "Strikes at which a peer is black-listed")
	cmd.Flags().Duration("rendezvous-wait", cliConfig.RendezvousWait, "Base period of the sync check")
	cmd.Flags().Int("sync-stall-threshold", cliConfig.SyncStallThreshold, "Multiplier of rendezvous-wait giving the sync-check period")

	cmd.Flags().Bool("store", cliConfig.Store, "Use BadgerDB instead of an in-memory chain")
	cmd.Flags().String("db", cliConfig.DatabaseDir, "Database directory")

	cmd.Flags().Bool("webrtc", cliConfig.WebRTC, "Use a WebRTC transport instead of plain TCP")
	cmd.Flags().String("signal-addr", cliConfig.SignalAddr, "WebRTC signaling server IP:Port")
	cmd.Flags().String("signal-realm", cliConfig.SignalRealm, "WebRTC signaling server realm")
	cmd.Flags().Bool("signal-skip-verify", cliConfig.SignalSkipVerify, "Skip TLS verification of the signaling server (testing only)")
	cmd.Flags().String("ice-addr", cliConfig.ICEAddress, "STUN/TURN server URI")
	cmd.Flags().String("ice-username", cliConfig.ICEUsername, "ICE server username")
	cmd.Flags().String("ice-password", cliConfig.ICEPassword, "ICE server password")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.Unmarshal(cliConfig); err != nil {
		return err
	}

	viper.SetConfigName("csnode")
	viper.AddConfigPath(cliConfig.DataDir)
	if err := viper.ReadInConfig(); err == nil {
		cliConfig.Logger().Debugf("using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		return err
	}
	if err := viper.Unmarshal(cliConfig); err != nil {
		return err
	}

	cliConfig.SetDataDir(cliConfig.DataDir)

	cliConfig.Logger().WithFields(map[string]interface{}{
		"datadir":       cliConfig.DataDir,
		"listen":        cliConfig.BindAddr,
		"advertise":     cliConfig.AdvertiseAddr,
		"store":         cliConfig.Store,
		"webrtc":        cliConfig.WebRTC,
		"maxNeighbours": cliConfig.MaxNeighbours,
	}).Debug("run")

	return nil
}
