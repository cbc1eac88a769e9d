// Command operator-token mints a bearer token for the internal endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"trial-funnel/config"
	"trial-funnel/services/auth"
)

func main() {
	subject := flag.String("subject", "", "operator identity written to the token subject")
	ttl := flag.Duration("ttl", auth.OperatorTokenDuration, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadInternal()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *subject == "" {
		*subject = cfg.OperatorEmail
	}

	token, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer).GenerateToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
