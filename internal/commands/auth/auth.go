// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth implements the grc auth commands, which keep the API token
// in the system keychain and reference it from the config file.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/grcconnector/internal/commands/shared"
	"github.com/tombee/grcconnector/internal/config"
	"github.com/tombee/grcconnector/internal/log"
	"github.com/tombee/grcconnector/internal/secrets"
)

// TokenKey names the keychain entry holding the API token.
const TokenKey = "api-token"

// TokenReference is the config value pointing at the keychain entry.
const TokenReference = "keychain:" + TokenKey

// NewCommand creates the auth command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage GRC API credentials",
	}
	cmd.AddCommand(newLoginCommand(), newLogoutCommand(), newStatusCommand())
	return cmd
}

func newLoginCommand() *cobra.Command {
	var token, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token in the system keychain",
		Long: `Store an API token in the system keychain and point the config file at it.

The token is read from --token, or from the first line of stdin when stdin
is not a terminal. On a terminal a form asks for the token without echoing
it, and for the base URL unless --base-url is given.

Examples:
  grc auth login --base-url https://acme.grc.example.com/api/v1
  echo "$TOKEN" | grc auth login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadFile(shared.GetConfigPath())
			if err != nil {
				return shared.NewConfigError("failed to read config", err)
			}

			if token == "" {
				if f, ok := terminal(cmd.InOrStdin()); ok {
					err = promptLogin(ctx, f, cmd.ErrOrStderr(), cfg.BaseURL, &baseURL, &token)
				} else {
					token, err = readLine(cmd.InOrStdin())
				}
				if errors.Is(err, huh.ErrUserAborted) {
					return shared.NewInvalidInputError("login cancelled", nil)
				}
				if err != nil {
					return shared.NewInvalidInputError("failed to read token", err)
				}
			}
			if token = strings.TrimSpace(token); token == "" {
				return shared.NewInvalidInputError("no token provided", nil)
			}

			if err := secrets.NewKeychainProvider().Set(ctx, TokenKey, token); err != nil {
				return shared.NewConfigError("failed to store token", err)
			}

			cfg.Auth.Type = config.AuthTypeToken
			cfg.Auth.Token = TokenReference
			if baseURL != "" {
				cfg.BaseURL = strings.TrimSpace(baseURL)
			}

			path, err := config.Write(cfg, shared.GetConfigPath())
			if err != nil {
				return shared.NewConfigError("failed to write config", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("Token %s stored in the system keychain", log.SanitizeAPIKey(token))))
			fmt.Fprintln(out, shared.RenderLabel("Config: "+path))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (prompted for when omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Also set the API base URL")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := true
			if err := secrets.NewKeychainProvider().Delete(cmd.Context(), TokenKey); err != nil {
				if !errors.Is(err, secrets.ErrSecretNotFound) {
					return shared.NewConfigError("failed to remove token", err)
				}
				removed = false
			}

			cfg, err := config.LoadFile(shared.GetConfigPath())
			if err != nil {
				return shared.NewConfigError("failed to read config", err)
			}
			path := ""
			if cfg.Auth.Token == TokenReference {
				cfg.Auth.Token = ""
				if path, err = config.Write(cfg, shared.GetConfigPath()); err != nil {
					return shared.NewConfigError("failed to write config", err)
				}
			}

			out := cmd.OutOrStdout()
			if removed {
				fmt.Fprintln(out, shared.RenderOK("Token removed from the system keychain"))
			} else {
				fmt.Fprintln(out, shared.RenderWarn("No token stored in the system keychain"))
			}
			if path != "" {
				fmt.Fprintln(out, shared.RenderLabel("Config: "+path))
			}
			return nil
		},
	}
}

// Status describes the configured credentials.
type Status struct {
	BaseURL  string `json:"base_url"`
	AuthType string `json:"auth_type"`
	Source   string `json:"source"`
	Token    string `json:"token,omitempty"`
	Resolved bool   `json:"resolved"`
	Error    string `json:"error,omitempty"`
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials the connector will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(shared.GetConfigPath())
			if err != nil {
				return shared.NewConfigError("failed to read config", err)
			}
			status := credentialStatus(cmd.Context(), cfg, secrets.DefaultRegistry())

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, status)
			}

			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("base url: "), status.BaseURL)
			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("auth:     "), status.AuthType)
			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("source:   "), status.Source)
			if status.Resolved {
				fmt.Fprintln(out, shared.RenderOK("credentials resolved "+status.Token))
				return nil
			}
			fmt.Fprintln(out, shared.RenderError("credentials unavailable: "+status.Error))
			return nil
		},
	}
}

func credentialStatus(ctx context.Context, cfg *config.Config, reg *secrets.Registry) Status {
	status := Status{BaseURL: cfg.BaseURL, AuthType: cfg.Auth.Type}

	secret := cfg.Auth.Token
	if cfg.Auth.Type == config.AuthTypeOAuth2 {
		secret = cfg.Auth.ClientSecret
	}
	if env := os.Getenv("GRC_API_TOKEN"); env != "" && cfg.Auth.Type != config.AuthTypeOAuth2 {
		secret = env
		status.Source = "environment (GRC_API_TOKEN)"
	}

	switch {
	case status.Source != "":
	case secret == "":
		status.Source = "none"
	case reg.IsReference(secret):
		status.Source = secret
	default:
		status.Source = "config file"
	}

	if secret == "" {
		status.Error = "no credentials configured; run 'grc auth login'"
		return status
	}
	value, err := reg.Resolve(ctx, secret)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Resolved = value != ""
	status.Token = log.SanitizeAPIKey(value)
	if !status.Resolved {
		status.Error = "credential resolved to an empty value"
	}
	return status
}

// terminal returns in as a file when it is an interactive terminal.
func terminal(in io.Reader) (*os.File, bool) {
	f, ok := in.(*os.File)
	return f, ok && term.IsTerminal(int(f.Fd()))
}

// promptLogin asks for the token without echo, and for the base URL unless
// one was passed on the command line. current prefills the base URL.
func promptLogin(ctx context.Context, in *os.File, out io.Writer, current string, baseURL, token *string) error {
	var fields []huh.Field
	if *baseURL == "" {
		*baseURL = current
		fields = append(fields, huh.NewInput().
			Title("API base URL").
			Placeholder("https://acme.grc.example.com/api/v1").
			Validate(validateBaseURL).
			Value(baseURL))
	}
	fields = append(fields, huh.NewInput().
		Title("API token").
		Description("Stored in the system keychain").
		EchoMode(huh.EchoModePassword).
		Validate(requireValue).
		Value(token))

	return huh.NewForm(huh.NewGroup(fields...)).
		WithInput(in).
		WithOutput(out).
		RunWithContext(ctx)
}

// readLine returns the first line of in, trimmed.
func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("enter an http(s) URL such as https://acme.grc.example.com/api/v1")
	}
	return nil
}

func requireValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}
