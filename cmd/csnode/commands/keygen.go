package commands

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/csnode/corenode/crypto/keys"
)

var (
	privKeyFile string
	pubKeyFile  string
)

// NewKeygenCmd returns the command that creates a fresh key pair.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new key pair",
		RunE:  keygen,
	}
	cmd.Flags().StringVar(&privKeyFile, "priv", cliConfig.Keyfile(), "File where the private key will be written")
	cmd.Flags().StringVar(&pubKeyFile, "pub", cliConfig.Keyfile()+".pub", "File where the public key will be written")
	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(privKeyFile); err == nil {
		return fmt.Errorf("a key already lives at %s", privKeyFile)
	}

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	if err := keys.NewSimpleKeyfile(privKeyFile).WriteKey(key); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	fmt.Printf("private key saved to %s\n", privKeyFile)

	if err := os.MkdirAll(path.Dir(pubKeyFile), 0700); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	if err := ioutil.WriteFile(pubKeyFile, []byte(keys.PublicKeyHex(&key.PublicKey)), 0600); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	fmt.Printf("public key saved to %s\n", pubKeyFile)

	return nil
}
