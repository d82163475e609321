package main

import (
	"encoding/json"
	"fmt"

	"github.com/mailio/go-vault-server/util"
	"github.com/spf13/cobra"
)

var wordListPath string

func init() {
	passphraseCmd.Flags().StringVarP(&wordListPath, "words", "w", "wordlist.txt", "word list file, one word per line")
	rootCmd.AddCommand(passphraseCmd)
}

// passphraseCmd generates a fresh 6 word passphrase and a username from the word list
var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Generate a passphrase and a username",
	Run: func(cmd *cobra.Command, args []string) {
		words, err := util.LoadWordList(wordListPath)
		check(err)
		passphrase, err := util.GeneratePassphrase(words)
		check(err)
		username, err := util.GenerateUsername(words)
		check(err)

		out, err := json.MarshalIndent(map[string]string{
			"passphrase": passphrase.String(),
			"username":   username,
		}, "", "  ")
		check(err)
		fmt.Println(string(out))
	},
}
