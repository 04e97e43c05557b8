/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/playcore/internal/auth"
)

var (
	tokenClient string
	tokenScopes []string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the IPC server",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "remote", "client name recorded in the token")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeRead, auth.ScopeControl}, "granted scopes (read, control)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.JWTSigningKey == "" {
		return errors.New("PLAYCORE_JWT_SIGNING_KEY is not set")
	}
	for _, s := range tokenScopes {
		if s != auth.ScopeRead && s != auth.ScopeControl {
			return fmt.Errorf("unknown scope %q", s)
		}
	}

	token, err := auth.Issue([]byte(cfg.JWTSigningKey), auth.Claims{
		ClientName: tokenClient,
		Scopes:     tokenScopes,
	}, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
