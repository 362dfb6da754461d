// Command ledgerbook_token issues an access token for an acting user, signed
// with the JWT_SECRET the backend is configured with.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/SscSPs/ledgerbook/internal/platform/config"
	"github.com/SscSPs/ledgerbook/internal/utils"
	"github.com/spf13/pflag"
)

func main() {
	userID := pflag.StringP("user", "u", "", "acting user recorded on ledger changes (required)")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := pflag.String("issuer", "ledgerbook", "token issuer")
	pflag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	token, err := utils.GenerateAccessToken(*userID, cfg.JWTSecret, *ttl, *issuer, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
