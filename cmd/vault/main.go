package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/blob"
	"github.com/chinmay706/Secure-vault-frontend/internal/cache"
	"github.com/chinmay706/Secure-vault-frontend/internal/config"
	"github.com/chinmay706/Secure-vault-frontend/internal/download"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
	"github.com/chinmay706/Secure-vault-frontend/internal/preview"
	"github.com/chinmay706/Secure-vault-frontend/internal/upload"
)

var (
	cfg    *config.Config
	client *api.Client
	store  *cache.Store
)

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "Secure Vault client - browse, upload, preview and share files",
	Long: `Secure Vault client is a command-line tool for a Secure Vault server.

Features:
  • Upload files with per-file progress and optional destination folder
  • Download files by id or share token
  • Inline previews served over a local loopback URL
  • Share links, visibility toggling, move-to-folder
  • Offline listing via a local metadata cache

Quick start:
  vault config set server_url https://vault.example.com/
  vault config set graphql_url https://vault.example.com/graphql
  vault upload notes.txt --folder docs-folder-id
  vault ls`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configuration management must work before the URLs are set.
		if cmd.Name() == "config" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
			return nil
		}

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded
		client = api.NewClient(cfg.ServerURL, cfg.GraphQLURL, api.StaticCredentials(cfg.Token))

		if s, err := cache.Open(cfg.CachePath); err != nil {
			log.Printf("Warning: metadata cache unavailable: %v", err)
		} else {
			store = s
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

var uploadCmd = &cobra.Command{
	Use:     "upload <file>...",
	Aliases: []string{"u", "up"},
	Short:   "Upload one or more files",
	Long: `Upload local files to the vault. Each file is an independent task with its
own progress; a failure in one never aborts the others. Tags apply to every
file in the batch, and --folder moves each file into place after its upload
succeeds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, _ := cmd.Flags().GetString("folder")
		tags, _ := cmd.Flags().GetStringArray("tag")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		noProgress, _ := cmd.Flags().GetBool("no-progress")

		sources := make([]upload.FileSource, 0, len(args))
		for _, path := range args {
			src, err := upload.FromPath(path)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}

		if concurrency == 0 {
			concurrency = cfg.UploadConcurrency
		}

		coordinator := upload.NewCoordinator(client, upload.Options{
			MaxConcurrent: concurrency,
			LingerDelay:   time.Duration(cfg.LingerSeconds) * time.Second,
			OnChange: func(task model.UploadTask) {
				renderTask(task, len(sources) == 1 && !noProgress)
				if task.Status == model.StatusCompleted && store != nil {
					if err := store.RecordTransfer("upload", task.FileID, task.Filename, task.SizeBytes); err != nil {
						log.Printf("Warning: failed to record transfer: %v", err)
					}
				}
			},
		})

		coordinator.Enqueue(cmd.Context(), sources, folderID, tags)
		coordinator.Wait()

		var failed int
		for _, task := range coordinator.Active() {
			if task.Status == model.StatusError {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(sources))
		}
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:     "download <file-id>...",
	Aliases: []string{"d", "dl"},
	Short:   "Download files to the local download directory",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.DownloadDir
		}

		trigger := download.NewTrigger(client, out)
		for _, id := range args {
			file := describeFile(cmd.Context(), id)

			path, err := trigger.Download(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)

			if store != nil {
				if info, err := os.Stat(path); err == nil {
					if err := store.RecordTransfer("download", file.ID, filepath.Base(path), info.Size()); err != nil {
						log.Printf("Warning: failed to record transfer: %v", err)
					}
				}
			}
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:     "preview <file-id>",
	Aliases: []string{"p"},
	Short:   "Preview a file through a local loopback URL",
	Long: `Resolve a file into a transient local preview URL. The URL stays live until
you press Enter, then it is revoked and the loopback server shuts down.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		public, _ := cmd.Flags().GetBool("public")

		file, err := client.GetFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error looking up file: %w", err)
		}

		blobs := blob.NewStore()
		if err := blobs.Start(cfg.PreviewAddr); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := blobs.Shutdown(ctx); err != nil {
				log.Printf("Warning: blob server shutdown: %v", err)
			}
		}()

		resolver := preview.NewResolver(client, blobs)
		defer resolver.Close()

		session, err := resolver.Resolve(cmd.Context(), file, public)
		if err != nil {
			return fmt.Errorf("error resolving preview: %w", err)
		}

		fmt.Printf("Previewing %s (%s, %s)\n", file.OriginalFilename, model.LabelFor(file.MimeType, file.OriginalFilename), formatSize(file.SizeBytes))
		if session.Kind == model.KindText {
			fmt.Printf("Viewer: %s\n", model.TextFlavor(file.OriginalFilename))
		}
		fmt.Printf("URL: %s\n", session.URL)
		fmt.Printf("Press Enter to close...\n")
		bufio.NewReader(os.Stdin).ReadString('\n')
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls [folder-id]",
	Aliases: []string{"l", "list"},
	Short:   "List files",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trash, _ := cmd.Flags().GetBool("trash")
		cached, _ := cmd.Flags().GetBool("cached")

		var files []model.FileDescriptor
		var err error
		switch {
		case cached:
			if store == nil {
				return fmt.Errorf("metadata cache unavailable")
			}
			files, err = store.Files()
		case trash:
			files, err = client.TrashedFiles(cmd.Context())
		default:
			folderID := ""
			if len(args) == 1 {
				folderID = args[0]
			}
			files, err = client.ListFiles(cmd.Context(), folderID)
		}
		if err != nil {
			return fmt.Errorf("error listing files: %w", err)
		}

		if !cached && !trash && store != nil {
			if err := store.ReplaceFiles(files); err != nil {
				log.Printf("Warning: failed to refresh cache: %v", err)
			}
		}

		for _, f := range files {
			shared := " "
			if f.HasActiveShare() {
				shared = "s"
			}
			fmt.Printf("%-36s %s %10s  %-12s %s\n",
				f.ID, shared, formatSize(f.SizeBytes), model.LabelFor(f.MimeType, f.OriginalFilename), f.OriginalFilename)
		}
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <file-id>",
	Short: "Create a public share link for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := client.ShareFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error sharing file: %w", err)
		}
		fmt.Printf("Share token: %s\n", link.Token)
		fmt.Printf("Public URL: %sp/%s\n", client.BaseURL, link.Token)
		return nil
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <file-id>",
	Short: "Revoke a file's public share link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.UnshareFile(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("error revoking share: %w", err)
		}
		fmt.Printf("Share link revoked for %s\n", args[0])
		return nil
	},
}

var shareFolderCmd = &cobra.Command{
	Use:   "share-folder <folder-id>",
	Short: "Create a public share link for a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := client.ShareFolder(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error sharing folder: %w", err)
		}
		fmt.Printf("Share token: %s\n", link.Token)
		return nil
	},
}

var unshareFolderCmd = &cobra.Command{
	Use:   "unshare-folder <folder-id>",
	Short: "Revoke a folder's public share link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.UnshareFolder(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("error revoking folder share: %w", err)
		}
		fmt.Printf("Share link revoked for folder %s\n", args[0])
		return nil
	},
}

var visibilityCmd = &cobra.Command{
	Use:   "visibility <file-id> <public|private>",
	Short: "Toggle a file's public visibility",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var public bool
		switch args[1] {
		case "public":
			public = true
		case "private":
			public = false
		default:
			return fmt.Errorf("visibility must be public or private, got %q", args[1])
		}

		if err := client.SetVisibility(cmd.Context(), args[0], public); err != nil {
			return fmt.Errorf("error setting visibility: %w", err)
		}
		fmt.Printf("File %s is now %s\n", args[0], args[1])
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <file-id> <folder-id>",
	Short: "Move a file into a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Move(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("error moving file: %w", err)
		}
		fmt.Printf("Moved %s into %s\n", args[0], args[1])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent uploads and downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		if store == nil {
			return fmt.Errorf("metadata cache unavailable")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		transfers, err := store.RecentTransfers(limit)
		if err != nil {
			return fmt.Errorf("error reading history: %w", err)
		}
		for _, t := range transfers {
			fmt.Printf("%s %-8s %10s  %s\n", t.At.Local().Format("2006-01-02 15:04"), t.Direction, formatSize(t.Size), t.Name)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"c", "cfg"},
	Short:   "Manage client configuration",
	Long: `Manage client configuration settings.

Configuration is stored in ~/.vault/config.yaml`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  • server_url: REST base URL (required for most commands)
  • graphql_url: GraphQL endpoint URL (required for most commands)
  • token: bearer credential
  • download_dir, cache_path, preview_addr
  • upload_concurrency, linger_seconds`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Set(args[0], args[1])
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := viper.GetString(args[0])
		if value == "" {
			fmt.Printf("%s is not set\n", args[0])
		} else {
			fmt.Printf("%s = %s\n", args[0], value)
		}
		return nil
	},
}

// describeFile fetches a descriptor, falling back to a bare id when the
// lookup fails so downloads by raw id still work.
func describeFile(ctx context.Context, id string) *model.FileDescriptor {
	if file, err := client.GetFile(ctx, id); err == nil {
		return file
	}
	if store != nil {
		if file, err := store.FileByID(id); err == nil {
			return &file
		}
	}
	return &model.FileDescriptor{ID: id}
}

// renderTask prints one task transition; with a bar for single-file batches.
func renderTask(task model.UploadTask, bar bool) {
	switch task.Status {
	case model.StatusUploading:
		if bar {
			printProgress(task.Progress)
		}
	case model.StatusCompleted:
		if bar {
			printProgress(100)
		}
		fmt.Printf("✓ %s uploaded (%s)\n", task.Filename, formatSize(task.SizeBytes))
		if task.RelocationErr != "" {
			fmt.Printf("  warning: %s\n", task.RelocationErr)
		}
	case model.StatusError:
		fmt.Printf("✗ %s failed: %s\n", task.Filename, task.Reason)
	}
}

func printProgress(percent int) {
	barWidth := 30
	filled := barWidth * percent / 100

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Printf("\r%s %d%%", bar, percent)

	if percent == 100 {
		fmt.Println()
	}
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func init() {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".vault")
	os.MkdirAll(configDir, 0o755)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("VAULT")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore errors if config file doesn't exist

	rootCmd.PersistentFlags().StringP("server", "s", "", "REST base URL")
	rootCmd.PersistentFlags().StringP("graphql", "g", "", "GraphQL endpoint URL")
	rootCmd.PersistentFlags().StringP("token", "t", "", "Bearer credential")

	viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("graphql_url", rootCmd.PersistentFlags().Lookup("graphql"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	uploadCmd.Flags().StringP("folder", "f", "", "Destination folder id")
	uploadCmd.Flags().StringArray("tag", nil, "Tag applied to every file in the batch (repeatable)")
	uploadCmd.Flags().IntP("concurrency", "c", 0, "Max simultaneous uploads (0 = unlimited)")
	uploadCmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	downloadCmd.Flags().StringP("out", "o", "", "Destination directory (default: configured download_dir)")

	previewCmd.Flags().Bool("public", false, "Resolve through the public share endpoint only")

	lsCmd.Flags().Bool("trash", false, "List trashed files")
	lsCmd.Flags().Bool("cached", false, "List from the local cache without contacting the server")

	historyCmd.Flags().Int("limit", 20, "Max history entries to show")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(unshareCmd)
	rootCmd.AddCommand(shareFolderCmd)
	rootCmd.AddCommand(unshareFolderCmd)
	rootCmd.AddCommand(visibilityCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
