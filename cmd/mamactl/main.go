// Package main provides the CLI entry point for mamactl.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mamalink/mamalink-go/internal/cache"
	"github.com/mamalink/mamalink-go/internal/config"
	"github.com/mamalink/mamalink-go/internal/flags"
	"github.com/mamalink/mamalink-go/internal/mockapi"
	"github.com/mamalink/mamalink-go/internal/service"
	"github.com/mamalink/mamalink-go/internal/stringutil"
	"github.com/mamalink/mamalink-go/internal/transport"
	"github.com/mamalink/mamalink-go/internal/tui"
)

// Output format constants.
const (
	outputJSON = "json"
	outputYAML = "yaml"
	outputText = "text"
)

const commandTimeout = 30 * time.Second

var (
	// Global flags
	flagMode       string
	flagAPIURL     string
	flagConfigPath string
	flagDebug      bool

	// List/search flags
	listPage   int
	listLimit  int
	listOutput string

	// Profile update flags
	updateDisplayName string
	updateBio         string
	updateAvatarURL   string
	updateChildAges   string

	// Suggestions flags
	suggestLimit int

	// Config show flags
	configShowOutput string

	// Loaded once, shared by all commands
	cfg      *config.Config
	appFlags *flags.Flags
	services *service.Services
	remote   cache.Backend
)

func main() {
	// .env is optional; real config comes from files and MAMACTL_* vars.
	_ = godotenv.Load()

	defer func() {
		if remote != nil {
			_ = remote.Close()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mamactl",
	Short: "MamaLink CLI - notifications, profiles and the follow graph",
	Long: `mamactl is a command-line client for the MamaLink social network.
It runs against the real API or a local mock backend with generated data,
selected by config or the --mode flag.

Mock mode (the default) needs no credentials and serves realistic
generated fixtures, so every command works offline.`,
}

// initConfig loads the configuration with proper precedence.
func initConfig() error {
	if cfg != nil {
		return nil
	}

	var err error
	cfg, err = config.Load(config.LoadOptions{
		ExplicitPath: flagConfigPath,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg.ApplyCLIOverrides(config.CLIOverrides{
		Mode:   flagMode,
		APIURL: flagAPIURL,
		Debug:  flagDebug,
	})

	return nil
}

// initServices wires flags, transports and the entity services from config.
func initServices() error {
	if services != nil {
		return nil
	}

	if err := initConfig(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appFlags = flags.New()
	if cfg.IsAPIMode() {
		appFlags.EnableAPIMode()
	}
	if cfg.Debug {
		appFlags.EnableDebug()
	}
	appFlags.SetMockDelay(cfg.MockDelayDuration())

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: appFlags.LogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.Cache.RedisAddr != "" {
		backend, err := cache.NewRedisBackend(cfg.Cache.RedisAddr, "", cfg.Cache.RedisDB)
		if err != nil {
			// Shared cache is an optimization; run without it.
			logger.Warn("redis unavailable, using in-memory cache only", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			remote = backend
		}
	}

	api := transport.NewHTTPClient(cfg.API.BaseURL, cfg.API.Token)
	registry := mockapi.NewRegistry(appFlags)
	dispatcher := transport.NewDispatcher(api, registry, appFlags, logger)

	services = service.New(service.Deps{
		Dispatcher: dispatcher,
		Flags:      appFlags,
		Logger:     logger,
		Remote:     remote,
	})
	return nil
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// encode writes v to stdout in the requested format, or calls text.
func encode(format string, v any, text func()) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return yaml.NewEncoder(os.Stdout).Encode(v)
	default:
		text()
		return nil
	}
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Manage the notification feed",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of notifications",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		page, err := services.Notifications.List(ctx, listPage, listLimit)
		if err != nil {
			return err
		}

		return encode(listOutput, page, func() {
			now := time.Now()
			for _, n := range page.Notifications {
				marker := "*"
				if n.IsRead {
					marker = " "
				}
				fmt.Printf("%s %-10s %-20s %s  %s\n",
					marker, "["+n.Type+"]", n.ActorName,
					stringutil.Truncate(n.Message, 60),
					stringutil.RelativeTime(n.CreatedAt, now))
			}
			fmt.Printf("\nPage %d (%d total, %d unread on this page)\n",
				page.Page, page.Total, page.UnreadCount)
		})
	},
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the unread notification count",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		count, err := services.Notifications.GetUnreadCount(ctx)
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark notifications as read",
	Args:  cobra.MinimumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		if err := services.Notifications.MarkAsRead(ctx, args); err != nil {
			return err
		}
		fmt.Printf("Marked %d notification(s) as read\n", len(args))
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		if err := services.Notifications.MarkAllAsRead(ctx); err != nil {
			return err
		}
		fmt.Println("All notifications marked as read")
		return nil
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user's profile",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		u, err := services.Users.GetMyProfile(ctx)
		if err != nil {
			return err
		}
		return encode(listOutput, u, func() { printUser(u) })
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		patch := service.ProfileUpdate{
			DisplayName: updateDisplayName,
			Bio:         updateBio,
			AvatarURL:   updateAvatarURL,
		}
		if updateChildAges != "" {
			patch.ChildAges = strings.Split(updateChildAges, ",")
			for i := range patch.ChildAges {
				patch.ChildAges[i] = strings.TrimSpace(patch.ChildAges[i])
			}
		}
		if patch.DisplayName == "" && patch.Bio == "" && patch.AvatarURL == "" && patch.ChildAges == nil {
			return fmt.Errorf("nothing to update: pass at least one of --display-name, --bio, --avatar-url, --child-ages")
		}

		ctx, cancel := cmdContext()
		defer cancel()

		u, err := services.Users.UpdateProfile(ctx, patch)
		if err != nil {
			return err
		}
		fmt.Println("Profile updated")
		printUser(u)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Look up users",
}

var userGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a user profile by ID",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		u, err := services.Users.GetUserByID(ctx, args[0])
		if err != nil {
			return err
		}
		return encode(listOutput, u, func() { printUser(u) })
	},
}

var userSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search users",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		page, err := services.Users.SearchUsers(ctx, args[0], listPage, listLimit)
		if err != nil {
			return err
		}
		return encode(listOutput, page, func() {
			for _, u := range page.Users {
				badge := ""
				if u.IsFollowing {
					badge = "  [following]"
				}
				fmt.Printf("%-24s @%-16s %d followers%s\n", u.DisplayName, u.Username, u.FollowerCount, badge)
			}
			fmt.Printf("\nPage %d of %d result(s)\n", page.Page, page.Total)
		})
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <user-id>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		if err := services.Follows.FollowUser(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Now following %s\n", args[0])
		return nil
	},
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <user-id>",
	Short: "Unfollow a user",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		if err := services.Follows.UnfollowUser(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Unfollowed %s\n", args[0])
		return nil
	},
}

var followsCmd = &cobra.Command{
	Use:   "follows",
	Short: "Browse the follow graph",
}

var followsFollowingCmd = &cobra.Command{
	Use:   "following <user-id>",
	Short: "List who a user follows",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		page, err := services.Follows.GetFollowing(ctx, args[0], listPage, listLimit)
		if err != nil {
			return err
		}
		return encode(listOutput, page, func() { printUserPage(page) })
	},
}

var followsFollowersCmd = &cobra.Command{
	Use:   "followers <user-id>",
	Short: "List a user's followers",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		page, err := services.Follows.GetFollowers(ctx, args[0], listPage, listLimit)
		if err != nil {
			return err
		}
		return encode(listOutput, page, func() { printUserPage(page) })
	},
}

func runSuggestions(_ *cobra.Command, _ []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	suggestions, err := services.Follows.GetFollowSuggestions(ctx, suggestLimit)
	if err != nil {
		return err
	}
	return encode(listOutput, suggestions, func() {
		for _, s := range suggestions {
			fmt.Printf("%-24s @%-16s %s", s.User.DisplayName, s.User.Username, s.Reason)
			if s.MutualCount > 0 {
				fmt.Printf(" (%d mutual)", s.MutualCount)
			}
			fmt.Println()
		}
	})
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Suggest users to follow",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: runSuggestions,
}

var followsSuggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Suggest users to follow",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: runSuggestions,
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show the active backend mode and runtime flags",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("Mode: %s\n", cfg.Mode)
		return yaml.NewEncoder(os.Stdout).Encode(appFlags.All())
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal UI for the notification feed",
	Long: `Launch an interactive terminal interface for browsing notifications
and finding mothers to follow.

Navigation:
  up/down      Navigate list
  Space        Select notification
  r / Enter    Mark selected (or current) as read
  a            Mark all as read
  n/p          Next / previous page
  /            Search users (Enter follows/unfollows)
  Esc          Back or quit`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initServices()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return tui.Run(services)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mamactl configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		switch configShowOutput {
		case outputJSON:
			// YAML display struct already redacts the token; round-trip it.
			var v map[string]any
			if err := yaml.Unmarshal([]byte(cfg.String()), &v); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		default:
			fmt.Print(cfg.String())
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to the global config file",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.SaveGlobal(); err != nil {
			return err
		}
		fmt.Println("Config saved")
		return nil
	},
}

func printUser(u *service.User) {
	fmt.Printf("Name:       %s (@%s)\n", u.DisplayName, u.Username)
	if u.Bio != "" {
		fmt.Printf("Bio:        %s\n", stringutil.Truncate(u.Bio, 70))
	}
	if len(u.ChildAges) > 0 {
		fmt.Printf("Children:   %s\n", strings.Join(u.ChildAges, ", "))
	}
	fmt.Printf("Followers:  %d\n", u.FollowerCount)
	fmt.Printf("Following:  %d\n", u.FollowingCount)
	if u.IsFollowing {
		fmt.Println("You follow this user")
	}
}

func printUserPage(page *service.UserPage) {
	for _, u := range page.Users {
		fmt.Printf("%-24s @%-16s %d followers\n", u.DisplayName, u.Username, u.FollowerCount)
	}
	fmt.Printf("\nPage %d of %d result(s)\n", page.Page, page.Total)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "Backend mode: api or mock (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "MamaLink API base URL")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&listPage, "page", 1, "Page number")
	rootCmd.PersistentFlags().IntVar(&listLimit, "limit", 20, "Page size")
	rootCmd.PersistentFlags().StringVarP(&listOutput, "output", "o", outputText, "Output format: text, json, yaml")

	profileUpdateCmd.Flags().StringVar(&updateDisplayName, "display-name", "", "New display name")
	profileUpdateCmd.Flags().StringVar(&updateBio, "bio", "", "New bio")
	profileUpdateCmd.Flags().StringVar(&updateAvatarURL, "avatar-url", "", "New avatar URL")
	profileUpdateCmd.Flags().StringVar(&updateChildAges, "child-ages", "", "Comma-separated child ages, e.g. 2y,5y")

	followsSuggestionsCmd.Flags().IntVar(&suggestLimit, "limit", 10, "Number of suggestions")
	suggestionsCmd.Flags().IntVar(&suggestLimit, "limit", 10, "Number of suggestions")

	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", outputYAML, "Output format: yaml, json")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsUnreadCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	userCmd.AddCommand(userGetCmd)
	userCmd.AddCommand(userSearchCmd)
	followsCmd.AddCommand(followsFollowingCmd)
	followsCmd.AddCommand(followsFollowersCmd)
	followsCmd.AddCommand(followsSuggestionsCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(unfollowCmd)
	rootCmd.AddCommand(followsCmd)
	rootCmd.AddCommand(suggestionsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modeCmd)
}
