package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/identity"
)

// runToken prints a bearer token signed with auth.jwt_secret.
func runToken(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, errHelp) {
		printHelp()
		return 0
	}
	if err != nil {
		printError(err.Error())
		return 1
	}

	loadEnvFiles()
	cfg, err := loadConfig(opts)
	if err != nil {
		printError(err.Error())
		return 1
	}

	tok, err := mintToken(cfg.Auth, opts, time.Now())
	if err != nil {
		printError(err.Error())
		return 1
	}
	fmt.Println(tok)
	return 0
}

// mintToken signs a token for opts.subject.
func mintToken(auth config.AuthConfig, opts options, now time.Time) (string, error) {
	if auth.JWTSecret == "" {
		return "", errors.New("auth.jwt_secret is not set")
	}
	if opts.subject == "" {
		return "", errors.New("--sub is required")
	}

	claims := identity.Claims{
		Email: opts.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   opts.subject,
			Issuer:    auth.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.ttl)),
		},
	}
	if auth.Audience != "" {
		claims.Audience = jwt.ClaimStrings{auth.Audience}
	}
	return identity.NewJWTAuthenticator(auth.JWTSecret, auth.Issuer, auth.Audience).Sign(claims)
}
