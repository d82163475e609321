package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mailio/go-vault-server/util"
	"github.com/spf13/cobra"
)

var (
	passphraseFlag string
	usernameFlag   string
	saltFlag       string
	vaultKeyFlag   string
	wrappedFlag    string
	iterationsFlag int
)

func init() {
	for _, c := range []*cobra.Command{deriveCmd, wrapCmd, unwrapCmd} {
		c.Flags().StringVarP(&passphraseFlag, "passphrase", "p", "", "6 word passphrase joined with '-'")
		c.Flags().StringVarP(&saltFlag, "salt", "s", "", "hex wrap key salt (random when empty)")
		c.Flags().IntVarP(&iterationsFlag, "iterations", "i", util.DefaultKDFParams.Iterations, "pbkdf2 iterations")
		c.MarkFlagRequired("passphrase")
	}
	deriveCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "username the authentication hash is salted with")
	deriveCmd.MarkFlagRequired("username")
	wrapCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "username the authentication hash is salted with")
	wrapCmd.MarkFlagRequired("username")
	wrapCmd.Flags().StringVarP(&vaultKeyFlag, "key", "k", "", "hex vault key (generated when empty)")
	unwrapCmd.Flags().StringVarP(&wrappedFlag, "wrapped", "W", "", "hex wrapped vault key")
	unwrapCmd.MarkFlagRequired("wrapped")
	unwrapCmd.MarkFlagRequired("salt")

	rootCmd.AddCommand(deriveCmd, wrapCmd, unwrapCmd)
}

func kdfParams() util.KDFParams {
	params := util.DefaultKDFParams
	params.Iterations = iterationsFlag
	return params
}

func saltOrRandom() []byte {
	if saltFlag == "" {
		salt, err := util.RandomBytes(util.KeySaltSize)
		check(err)
		return salt
	}
	salt, err := util.DecodeHex(saltFlag)
	check(err)
	return salt
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	check(err)
	fmt.Println(string(out))
}

// deriveCmd prints the wrap key and the authentication hash of a passphrase
var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive the wrap key and the authentication hash",
	Run: func(cmd *cobra.Command, args []string) {
		passphrase, err := util.ParsePassphrase(passphraseFlag)
		check(err)
		salt := saltOrRandom()
		creds, err := util.DeriveCredentials(context.Background(), passphrase, salt, usernameFlag, kdfParams())
		check(err)
		printJSON(map[string]string{
			"passphraseKeySalt": hex.EncodeToString(salt),
			"wrapKey":           hex.EncodeToString(creds.WrapKey),
			"passphraseHash":    hex.EncodeToString(creds.AuthHash),
		})
	},
}

// wrapCmd produces the body of POST /api/v1/account/passphrase
var wrapCmd = &cobra.Command{
	Use:   "wrap",
	Short: "Wrap a vault key under the passphrase derived wrap key",
	Run: func(cmd *cobra.Command, args []string) {
		passphrase, err := util.ParsePassphrase(passphraseFlag)
		check(err)
		salt := saltOrRandom()
		creds, err := util.DeriveCredentials(context.Background(), passphrase, salt, usernameFlag, kdfParams())
		check(err)

		var vaultKey util.VaultKey
		if vaultKeyFlag == "" {
			vaultKey, err = util.GenerateVaultKey()
		} else {
			vaultKey, err = util.DecodeHex(vaultKeyFlag)
		}
		check(err)
		wrapped, err := util.WrapVaultKey(vaultKey, creds.WrapKey)
		check(err)

		printJSON(map[string]string{
			"vaultKey":                  hex.EncodeToString(vaultKey),
			"passphraseWrappedVaultKey": hex.EncodeToString(wrapped),
			"passphraseKeySalt":         hex.EncodeToString(salt),
			"passphraseHash":            hex.EncodeToString(creds.AuthHash),
		})
	},
}

// unwrapCmd recovers the vault key from the login response
var unwrapCmd = &cobra.Command{
	Use:   "unwrap",
	Short: "Unwrap a vault key with the passphrase and key salt",
	Run: func(cmd *cobra.Command, args []string) {
		passphrase, err := util.ParsePassphrase(passphraseFlag)
		check(err)
		salt := saltOrRandom()
		wrapped, err := util.DecodeHex(wrappedFlag)
		check(err)
		wrapKey, err := util.DeriveWrapKey(passphrase, salt, kdfParams())
		check(err)
		vaultKey, err := util.UnwrapVaultKey(wrapped, wrapKey)
		check(err)
		printJSON(map[string]string{"vaultKey": hex.EncodeToString(vaultKey)})
	},
}
