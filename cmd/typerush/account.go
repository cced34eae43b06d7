package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typerush/internal/app"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/syncer"
)

var (
	accountEmail    string
	accountName     string
	accountPassword string
	accountNoSync   bool
)

// stdin is shared so buffered input survives across prompts.
var stdin = bufio.NewReader(os.Stdin)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the sync server",
		Args:  cobra.NoArgs,
		RunE:  runRegisterCmd,
	}
	cmd.Flags().StringVar(&accountEmail, "email", "", "account email")
	cmd.Flags().StringVar(&accountName, "name", "", "display name shown on leaderboards")
	cmd.Flags().StringVar(&accountPassword, "password", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&accountNoSync, "no-sync", false, "do not upload local races after signing in")
	return cmd
}

func runRegisterCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	email, err := promptValue("Email: ", accountEmail)
	if err != nil {
		return err
	}
	name, err := promptValue("Display name: ", accountName)
	if err != nil {
		return err
	}
	password, err := readPassword(accountPassword)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	user, err := a.Register(ctx, email, password, name)
	if err != nil {
		return accountError(err)
	}
	if err := writeOut(cmd, "Registered as %s.\n", user.DisplayName); err != nil {
		return err
	}
	return syncAfterSignIn(cmd, a)
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the sync server",
		Args:  cobra.NoArgs,
		RunE:  runLoginCmd,
	}
	cmd.Flags().StringVar(&accountEmail, "email", "", "account email")
	cmd.Flags().StringVar(&accountPassword, "password", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&accountNoSync, "no-sync", false, "do not upload local races after signing in")
	return cmd
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	email, err := promptValue("Email: ", accountEmail)
	if err != nil {
		return err
	}
	password, err := readPassword(accountPassword)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	user, err := a.Login(ctx, email, password)
	if err != nil {
		return accountError(err)
	}
	if err := writeOut(cmd, "Signed in as %s.\n", user.DisplayName); err != nil {
		return err
	}
	return syncAfterSignIn(cmd, a)
}

// syncAfterSignIn uploads local history and pulls remote races. A failure
// leaves the account signed in and is only reported.
func syncAfterSignIn(cmd *cobra.Command, a *app.App) error {
	if accountNoSync {
		return nil
	}
	rep, err := a.Sync().SyncAll(cmd.Context())
	if err != nil {
		logErrf("Sync failed: %v\n", err)
		return nil
	}
	return writeOut(cmd, "Uploaded %d races, merged %d from the server.\n", rep.Uploaded, rep.Merged)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out, keeping local races",
		Args:  cobra.NoArgs,
		RunE:  runLogoutCmd,
	}
}

func runLogoutCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	if a.Token() == "" {
		return writeOut(cmd, "Not signed in.\n")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := a.Logout(ctx); err != nil {
		return err
	}
	return writeOut(cmd, "Signed out.\n")
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  runWhoamiCmd,
	}
}

func runWhoamiCmd(cmd *cobra.Command, _ []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	user, ok := a.User()
	switch {
	case ok:
		return writeOut(cmd, "%s <%s>\nid: %s\nserver: %s\n", user.DisplayName, user.Email, user.ID, a.Remote().BaseURL())
	case a.Token() != "":
		return writeOut(cmd, "Signed in, but the server could not be reached to confirm the account.\n")
	default:
		return writeOut(cmd, "Not signed in.\n")
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <display-name>",
		Short: "Change your leaderboard display name",
		Args:  cobra.ExactArgs(1),
		RunE:  runRenameCmd,
	}
}

func runRenameCmd(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	user, err := a.UpdateDisplayName(ctx, args[0])
	if err != nil {
		return accountError(err)
	}
	return writeOut(cmd, "Display name is now %s.\n", user.DisplayName)
}

func promptValue(prompt, value string) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	logErrf("%s", prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts without echo when stdin is a terminal.
func readPassword(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptValue("", "")
	}
	logErrf("Password: ")
	raw, err := term.ReadPassword(fd)
	logErrln()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func accountError(err error) error {
	switch {
	case errors.Is(err, app.ErrNoServer):
		return fmt.Errorf("no sync server configured; pass --server or set sync.server-url with 'typerush config'")
	case errors.Is(err, syncer.ErrOffline):
		return fmt.Errorf("offline mode is enabled")
	case errors.Is(err, syncer.ErrNotSignedIn):
		return fmt.Errorf("not signed in; run 'typerush login' first")
	case errors.Is(err, model.ErrInvalidCredentials):
		return fmt.Errorf("invalid email or password")
	case errors.Is(err, model.ErrDuplicateAccount):
		return fmt.Errorf("an account with this email already exists")
	case errors.Is(err, model.ErrUnauthorized):
		return fmt.Errorf("session expired; run 'typerush login' again")
	case errors.Is(err, model.ErrNetwork):
		return fmt.Errorf("server unreachable: %w", err)
	default:
		return err
	}
}

// isQuietSyncErr reports errors that mean sync was simply not attempted.
func isQuietSyncErr(err error) bool {
	return errors.Is(err, syncer.ErrNotSignedIn) || errors.Is(err, syncer.ErrOffline)
}
