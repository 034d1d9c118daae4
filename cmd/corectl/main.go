package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	runtime "runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"torrentcore/internal/client"
	"torrentcore/internal/domain"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

var (
	version = getVersion()
	commit  = getCommit()
	date    = getBuildDate()
)

func getVersion() string {
	if info, ok := runtime.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func getCommit() string {
	if info, ok := runtime.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return setting.Value[:7]
			}
		}
	}
	return "none"
}

func getBuildDate() string {
	if info, ok := runtime.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "corectl",
		Short: "corectl manages torrents on a running torrentcore server",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return initSettings()
		},
	}

	addSavePath string

	addCmd = &cobra.Command{
		Use:   "add <magnet-or-file>",
		Short: "Add a torrent from a magnet link or .torrent file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
		Example: `  # Add a magnet link
  corectl add "magnet:?xt=urn:btih:..."

  # Add a .torrent file into a specific directory
  corectl add ubuntu.torrent --save-path /mnt/downloads`,
	}

	listMax int

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Snapshot the session and list its torrents",
		Args:  cobra.NoArgs,
		RunE:  runList,
		Example: `  # List every torrent
  corectl list

  # Keep only the two oldest entries in the snapshot
  corectl list --max 2`,
	}

	nameCmd = &cobra.Command{
		Use:   "name <index>",
		Short: "Print the name at an index of the last snapshot",
		Long: `Print the name stored at the given index of the snapshot taken by the
most recent "corectl list" (or any other snapshot call). Indexes stay
valid until the next snapshot replaces the view.`,
		Args: cobra.ExactArgs(1),
		RunE: runName,
	}

	showCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show the live status of one torrent",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}

	pauseCmd = &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a torrent",
		Args:  cobra.ExactArgs(1),
		RunE:  runPause,
	}

	resumeCmd = &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused torrent",
		Args:  cobra.ExactArgs(1),
		RunE:  runResume,
	}

	retryCmd = &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a torrent that stopped with an error",
		Args:  cobra.ExactArgs(1),
		RunE:  runRetry,
	}

	rmCmd = &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a torrent from the session (downloaded files stay)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}

	watchInterval time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Poll the server and print live transfer status",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
		Example: `  # Refresh every two seconds until interrupted
  corectl watch

  # Slower refresh
  corectl watch --interval 10s`,
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new config file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE:  runVersion,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("server", defaultServer, "base URL of the torrentcore API")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	setupGroup := &cobra.Group{
		ID:    "setup",
		Title: "Configuration Commands:",
	}

	operationGroup := &cobra.Group{
		ID:    "operation",
		Title: "Torrent Commands:",
	}

	rootCmd.AddGroup(setupGroup, operationGroup)

	initCmd.GroupID = "setup"
	for _, cmd := range []*cobra.Command{addCmd, listCmd, nameCmd, showCmd, pauseCmd, resumeCmd, retryCmd, rmCmd, watchCmd} {
		cmd.GroupID = "operation"
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	addCmd.Flags().StringVar(&addSavePath, "save-path", "", "directory the torrent downloads into")
	listCmd.Flags().IntVar(&listMax, "max", -1, "cap the snapshot at the N oldest entries (-1 keeps all)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval")
}

// initSettings wires flag, environment and config-file lookups. Precedence is
// flag, then CORECTL_* environment, then config file, then defaults.
func initSettings() error {
	viper.SetDefault("server", defaultServer)
	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("save_path", "")

	viper.SetEnvPrefix("CORECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "corectl"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Only an explicitly named file is required to exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Debug().Str("path", viper.ConfigFileUsed()).Msg("loaded config file")
	}
	return nil
}

func newAPIClient() (*client.Client, error) {
	c, err := client.New(viper.GetString("server"), viper.GetDuration("timeout"))
	if err != nil {
		log.Error().Err(err).Msg("invalid server settings")
		return nil, err
	}
	return c, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	savePath := addSavePath
	if savePath == "" {
		savePath = viper.GetString("save_path")
	}

	source := args[0]
	var rec domain.TorrentRecord
	if strings.HasPrefix(source, "magnet:") {
		rec, err = c.AddMagnet(cmd.Context(), source, savePath)
	} else {
		raw, rerr := os.ReadFile(source)
		if rerr != nil {
			return fmt.Errorf("read torrent file: %w", rerr)
		}
		rec, err = c.AddTorrentFile(cmd.Context(), filepath.Base(source), raw, savePath)
	}
	if err != nil {
		log.Error().Err(err).Msg("add failed")
		return err
	}

	log.Info().
		Str("id", rec.ID.String()).
		Str("name", rec.Name).
		Str("state", string(rec.State)).
		Msg("torrent added")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	view, err := c.Snapshot(cmd.Context(), listMax)
	if err != nil {
		return err
	}
	if view.Count == 0 {
		log.Info().Msg("no torrents")
		return nil
	}

	renderStatusTable(os.Stdout, view.Items)
	return nil
}

func runName(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be an integer: %q", args[0])
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	name, err := c.NameAt(cmd.Context(), index)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	st, err := c.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", st.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", st.Name)
	fmt.Fprintf(tw, "State:\t%s\n", st.State)
	fmt.Fprintf(tw, "Progress:\t%.1f%%\n", st.Progress*100)
	fmt.Fprintf(tw, "Size:\t%s\n", units.HumanSize(float64(st.TotalWanted)))
	fmt.Fprintf(tw, "Done:\t%s\n", units.HumanSize(float64(st.TotalWantedDone)))
	fmt.Fprintf(tw, "Down:\t%s/s\n", units.HumanSize(float64(st.DownloadRate)))
	fmt.Fprintf(tw, "Up:\t%s/s\n", units.HumanSize(float64(st.UploadRate)))
	fmt.Fprintf(tw, "Peers:\t%d (%d seeds)\n", st.Peers, st.Seeds)
	if st.HasError {
		fmt.Fprintf(tw, "Error:\t%s\n", st.Error)
	}
	return tw.Flush()
}

func runPause(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	return controlTorrent(cmd, c.Pause, args[0], "torrent paused")
}

func runResume(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	return controlTorrent(cmd, c.Resume, args[0], "torrent resumed")
}

func runRetry(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	return controlTorrent(cmd, c.Retry, args[0], "retry scheduled")
}

func controlTorrent(cmd *cobra.Command, op func(context.Context, string) (domain.TorrentStatus, error), id, msg string) error {
	st, err := op(cmd.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("control request failed")
		return err
	}

	log.Info().
		Str("id", st.ID.String()).
		Str("state", string(st.State)).
		Msg(msg)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := c.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	log.Info().Str("id", args[0]).Msg("torrent removed")
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}

	log.Info().Dur("interval", watchInterval).Msg("watching, interrupt to stop")

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		view, err := c.Statuses(ctx, -1)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("status poll failed")
		} else {
			printWatchFrame(os.Stdout, view.Items)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// fileConfig is the on-disk shape written by "corectl init" and read back
// through viper.
type fileConfig struct {
	Server   string `yaml:"server"`
	Timeout  string `yaml:"timeout"`
	SavePath string `yaml:"save_path"`
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error().Err(err).Msg("could not determine home directory")
			return fmt.Errorf("could not determine home directory: %w", err)
		}
		configDir := filepath.Join(home, ".config", "corectl")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			log.Error().Err(err).Str("dir", configDir).Msg("could not create config directory")
			return fmt.Errorf("could not create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		log.Error().Str("path", configPath).Msg("config file already exists")
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	defaultConfig := fileConfig{
		Server:   defaultServer,
		Timeout:  defaultTimeout.String(),
		SavePath: "",
	}

	data, err := yaml.Marshal(defaultConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configContent := `# corectl configuration
#
# server:    base URL of the torrentcore HTTP API
# timeout:   per-request timeout as a Go duration string (e.g. 30s)
# save_path: default download directory sent with every add request;
#            leave empty to use the server's default
#
# Every key can also be set through the environment:
# CORECTL_SERVER, CORECTL_TIMEOUT, CORECTL_SAVE_PATH.

`
	configContent += string(data)

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Str("path", configPath).Msg("created new config file")
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("buildDate", date).
		Msg("corectl version info")
	return nil
}

func renderStatusTable(w io.Writer, items []domain.TorrentStatus) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tPROGRESS\tSIZE\tDOWN\tUP\tPEERS")
	for _, st := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%s\t%s/s\t%s/s\t%d\n",
			shortID(st.ID),
			truncateName(st.Name, 40),
			st.State,
			st.Progress*100,
			units.HumanSize(float64(st.TotalWanted)),
			units.HumanSize(float64(st.DownloadRate)),
			units.HumanSize(float64(st.UploadRate)),
			st.Peers,
		)
	}
	_ = tw.Flush()
}

func printWatchFrame(w io.Writer, items []domain.TorrentStatus) {
	var down, up int64
	for _, st := range items {
		down += st.DownloadRate
		up += st.UploadRate
	}

	fmt.Fprintf(w, "[%s] %d torrents  down %s/s  up %s/s\n",
		time.Now().Format("15:04:05"), len(items),
		units.HumanSize(float64(down)), units.HumanSize(float64(up)))
	if len(items) > 0 {
		renderStatusTable(w, items)
	}
	fmt.Fprintln(w)
}

// shortID keeps table rows readable; the full infohash is still available
// from "corectl show".
func shortID(id domain.TorrentID) string {
	s := id.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

func truncateName(name string, max int) string {
	if name == "" {
		return "(metadata pending)"
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}
