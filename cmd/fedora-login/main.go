package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	fedora "github.com/ironthree/fedora-go"
	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/config/factory"
	"github.com/ironthree/fedora-go/lib/config/trace"
	"github.com/ironthree/fedora-go/lib/khttp/krequestlog"
	"github.com/ironthree/fedora-go/lib/logger"
)

const keyringService = "fedora-go"

// Profile is a stored set of defaults for one service, kept in the user
// configuration directory. Profiles can be hand written in any of the
// supported formats, new ones are saved as TOML.
type Profile struct {
	Username string `toml:"username" yaml:"username" json:"username"`
	LoginURL string `toml:"login_url" yaml:"login_url" json:"login_url"`
	Staging  bool   `toml:"staging" yaml:"staging" json:"staging"`
}

type globalOptions struct {
	session *fedora.Flags
	store   *factory.Flags
	trace   *trace.Flags
	http    *krequestlog.Flags

	verbosity int
	logFile   string
	envFile   string

	log logger.Logger
}

// setup loads the environment and assembles the logger. Run before any
// subcommand.
func (g *globalOptions) setup() error {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil {
			return fmt.Errorf("could not load environment from %s: %w", g.envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not load environment from .env: %w", err)
	}

	console := logrus.New()
	console.SetOutput(os.Stderr)
	console.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case g.verbosity >= 2:
		console.SetLevel(logrus.DebugLevel)
	case g.verbosity == 1:
		console.SetLevel(logrus.InfoLevel)
	default:
		console.SetLevel(logrus.WarnLevel)
	}
	g.log = console

	if g.logFile != "" {
		file, err := os.OpenFile(g.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("could not open log file %s: %w", g.logFile, err)
		}
		persisted := logrus.New()
		persisted.SetOutput(file)
		persisted.SetFormatter(&logrus.JSONFormatter{})
		persisted.SetLevel(logrus.DebugLevel)
		g.log = logger.NewTee(console, persisted)
	}
	return nil
}

func (g *globalOptions) modifiers(extra ...fedora.Modifier) []fedora.Modifier {
	mods := []fedora.Modifier{fedora.FromFlags(g.session), fedora.WithLogger(g.log)}
	if g.http.LogStart || g.http.LogEnd || g.http.LogHeaders {
		mods = append(mods, fedora.WithTransport(krequestlog.NewTransport(nil,
			krequestlog.FromFlags(g.http),
			krequestlog.WithLogger(g.log),
			krequestlog.WithPrinter(g.log.Debugf),
		)))
	}
	return append(mods, extra...)
}

func openProfiles(g *globalOptions) (config.Store, error) {
	opener, err := factory.New(factory.FromFlags(g.store))
	if err != nil {
		return nil, err
	}
	tracer := trace.New(trace.FromFlags(g.trace), trace.WithLogger(g.log))
	store, err := tracer.WrapOpener(opener)("fedora", "profiles")
	if err != nil {
		return nil, fmt.Errorf("could not open the profile store: %w", err)
	}
	return store, nil
}

func loadProfile(g *globalOptions, name string) (*Profile, error) {
	store, err := openProfiles(g)
	if err != nil {
		return nil, err
	}
	var profile Profile
	if _, err := store.Unmarshal(config.Key(name), &profile); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no profile named %s", name)
		}
		return nil, err
	}
	return &profile, nil
}

func resolveUsername(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("FEDORA_USERNAME"); env != "" {
		return env, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no username, pass --username or set FEDORA_USERNAME")
	}
	fmt.Fprint(os.Stderr, "FAS username: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	username := strings.TrimSpace(line)
	if username == "" {
		return "", errors.New("empty username")
	}
	return username, nil
}

func resolvePassword(g *globalOptions, username, flagValue string, useKeyring bool) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("FEDORA_PASSWORD"); env != "" {
		return env, nil
	}
	if useKeyring {
		secret, err := keyring.Get(keyringService, username)
		if err == nil {
			g.log.Debugf("using the password stored in the system keyring")
			return secret, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			g.log.Warnf("keyring lookup failed: %v", err)
		}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no password available and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "FAS password for %s: ", username)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func NewLoginCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [login-url]",
		Short: "Log in to a fedora service and cache the session cookies",
		Example: `  fedora-login login https://bodhi.fedoraproject.org/login
  fedora-login login --profile bodhi`,
		Args: cobra.MaximumNArgs(1),
	}

	options := struct {
		Username     string
		Password     string
		Profile      string
		NoKeyring    bool
		SavePassword bool
	}{}

	cmd.Flags().StringVarP(&options.Username, "username", "u", "", "FAS account name")
	cmd.Flags().StringVar(&options.Password, "password", "", "FAS password. Prefer FEDORA_PASSWORD or the system keyring over this flag")
	cmd.Flags().StringVarP(&options.Profile, "profile", "p", "", "Stored profile supplying defaults for this login")
	cmd.Flags().BoolVar(&options.NoKeyring, "no-keyring", false, "Do not consult the system keyring for the password")
	cmd.Flags().BoolVar(&options.SavePassword, "save-password", false, "Store the password in the system keyring after a successful login")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		loginURL := ""
		if len(args) > 0 {
			loginURL = args[0]
		}

		mods := g.modifiers()
		if options.Profile != "" {
			profile, err := loadProfile(g, options.Profile)
			if err != nil {
				return err
			}
			if options.Username == "" {
				options.Username = profile.Username
			}
			if loginURL == "" {
				loginURL = profile.LoginURL
			}
			if profile.Staging {
				mods = append(mods, fedora.ForStaging())
			}
		}
		if loginURL == "" {
			return errors.New("no login url, pass one as argument or store one in the profile")
		}

		username, err := resolveUsername(options.Username)
		if err != nil {
			return err
		}
		password, err := resolvePassword(g, username, options.Password, !options.NoKeyring)
		if err != nil {
			return err
		}

		session, err := fedora.NewOpenIDSession(cmd.Context(), loginURL,
			fedora.Credentials{Username: username, Password: password}, mods...)
		if err != nil {
			return err
		}

		if options.SavePassword {
			if err := keyring.Set(keyringService, username, password); err != nil {
				g.log.Warnf("could not store the password in the system keyring: %v", err)
			}
		}

		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen)
		if params := session.Params(); params != nil {
			green.Fprintf(out, "logged in as %s\n", params.Nickname())
			fmt.Fprintf(out, "identity: %s\n", params.Identity())
			if email := params.Email(); email != "" {
				fmt.Fprintf(out, "email:    %s\n", email)
			}
		} else {
			green.Fprintf(out, "reused cached session cookies for %s\n", loginURL)
		}
		return nil
	}
	return cmd
}

func NewCacheCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the on-disk cookie cache",
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show what is in the cookie cache",
		Args:  cobra.NoArgs,
	}
	infoCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cache, err := fedora.OpenCookieCache(g.modifiers()...)
		if err != nil {
			return err
		}
		info, err := cache.Info()
		if errors.Is(err, fedora.ErrCacheMiss) {
			fmt.Fprintln(cmd.OutOrStdout(), "the cookie cache is empty")
			return nil
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "login url: %s\n", info.LoginURL)
		fmt.Fprintf(out, "written:   %s (%s)\n", info.Written.Format(time.RFC1123), humanize.Time(info.Written))
		fmt.Fprintf(out, "cookies:   %d\n", info.Cookies)
		if info.Fresh {
			color.New(color.FgGreen).Fprintln(out, "fresh: a new session would reuse these cookies")
		} else {
			color.New(color.FgYellow).Fprintln(out, "stale: a new session would log in again")
		}
		return nil
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Throw away the cached session cookies",
		Args:  cobra.NoArgs,
	}
	clearCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cache, err := fedora.OpenCookieCache(g.modifiers()...)
		if err != nil {
			return err
		}
		if err := cache.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cookie cache cleared")
		return nil
	}

	cmd.AddCommand(infoCmd, clearCmd)
	return cmd
}

func NewProfileCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage stored service profiles",
		Long: `Profiles store the username and login url of a service in the user
configuration directory, so a login only needs the profile name.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored profiles",
		Args:  cobra.NoArgs,
	}
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles(g)
		if err != nil {
			return err
		}
		descs, err := store.List()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(descs))
		for _, desc := range descs {
			names = append(names, desc.Key())
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a stored profile",
		Args:  cobra.ExactArgs(1),
	}
	showCmd.RunE = func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles(g)
		if err != nil {
			return err
		}
		var profile Profile
		if _, err := store.Unmarshal(config.Key(args[0]), &profile); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no profile named %s", args[0])
			}
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "username:  %s\n", profile.Username)
		fmt.Fprintf(out, "login url: %s\n", profile.LoginURL)
		fmt.Fprintf(out, "staging:   %t\n", profile.Staging)
		return nil
	}

	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or update a stored profile",
		Args:  cobra.ExactArgs(1),
	}
	options := struct {
		Username string
		LoginURL string
		Staging  bool
	}{}
	setCmd.Flags().StringVarP(&options.Username, "username", "u", "", "FAS account name stored in the profile")
	setCmd.Flags().StringVar(&options.LoginURL, "login-url", "", "Login url of the service")
	setCmd.Flags().BoolVar(&options.Staging, "staging", false, "Authenticate against the staging infrastructure")
	setCmd.RunE = func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles(g)
		if err != nil {
			return err
		}
		var profile Profile
		if _, err := store.Unmarshal(config.Key(args[0]), &profile); err != nil && !os.IsNotExist(err) {
			return err
		}
		if options.Username != "" {
			profile.Username = options.Username
		}
		if options.LoginURL != "" {
			profile.LoginURL = options.LoginURL
		}
		if cmd.Flags().Changed("staging") {
			profile.Staging = options.Staging
		}
		if err := store.Marshal(config.Key(args[0]), &profile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %s saved\n", args[0])
		return nil
	}

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
	}
	removeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles(g)
		if err != nil {
			return err
		}
		if err := store.Delete(config.Key(args[0])); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no profile named %s", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile %s removed\n", args[0])
		return nil
	}

	cmd.AddCommand(listCmd, showCmd, setCmd, removeCmd)
	return cmd
}

func NewPasswordCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the FAS password in the system keyring",
	}

	setCmd := &cobra.Command{
		Use:   "set <username>",
		Short: "Prompt for a password and store it in the system keyring",
		Args:  cobra.ExactArgs(1),
	}
	setCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("refusing to read a password from a pipe, run this on a terminal")
		}
		fmt.Fprintf(os.Stderr, "FAS password for %s: ", args[0])
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		if len(secret) == 0 {
			return errors.New("empty password")
		}
		if err := keyring.Set(keyringService, args[0], string(secret)); err != nil {
			return fmt.Errorf("could not store the password: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password for %s stored in the system keyring\n", args[0])
		return nil
	}

	clearCmd := &cobra.Command{
		Use:   "clear <username>",
		Short: "Remove the stored password from the system keyring",
		Args:  cobra.ExactArgs(1),
	}
	clearCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, args[0]); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "no password stored for %s\n", args[0])
				return nil
			}
			return fmt.Errorf("could not remove the password: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password for %s removed from the system keyring\n", args[0])
		return nil
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func main() {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "fedora-login",
		Short: "Authenticate against fedora services with a FAS account",
		Long: `fedora-login performs the legacy OpenID login dance against the Fedora
Accounts System and caches the resulting session cookies, so tools built
on fedora-go can reuse them without logging in again.

The OpenID endpoint it talks to is deprecated and may stop working at
any time.`,
		SilenceUsage: true,
	}

	g.session = fedora.DefaultFlags().Register(root.PersistentFlags(), "")
	g.store = factory.DefaultFlags().Register(root.PersistentFlags(), "")
	g.trace = trace.DefaultFlags().Register(root.PersistentFlags(), "")
	g.http = krequestlog.DefaultFlags().Register(root.PersistentFlags(), "http-")
	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "Increase log verbosity, repeat for debug output")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Append logs to this file as json, in addition to stderr")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "Load environment variables from this file instead of .env")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return g.setup()
	}

	root.AddCommand(NewLoginCommand(g))
	root.AddCommand(NewCacheCommand(g))
	root.AddCommand(NewProfileCommand(g))
	root.AddCommand(NewPasswordCommand(g))

	cobra.EnablePrefixMatching = true
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
