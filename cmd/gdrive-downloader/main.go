package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	gdrive "github.com/Abhishekdank1254/gdrive-downloader"
	"github.com/Abhishekdank1254/gdrive-downloader/internal/config"
)

var version = "1.0.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "gdrive-downloader",
		Usage:   "Download shared files from Google Drive",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "apikey",
				Aliases: []string{"key"},
				Usage:   "API key, used for metadata lookup and folder downloads (or set " + config.EnvAPIKey + ")",
			},
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "User-Agent to use for download requests",
			},
			&cli.StringFlag{
				Name:  "proxy",
				Usage: "Proxy URL (e.g. http://host:port)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress output",
			},
		},
		Commands: []*cli.Command{
			downloadCommand(),
			infoCommand(),
			folderCommand(),
			versionCommand(),
		},
	}
}

// loadConfig merges the config file, environment and global flags. Flags win.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if v := c.String("apikey"); v != "" {
		cfg.APIKey = v
	}
	if v := c.String("user-agent"); v != "" {
		cfg.UserAgent = v
	}
	if v := c.String("proxy"); v != "" {
		cfg.Proxy = v
	}
	if c.Bool("quiet") {
		cfg.Quiet = true
	}
	return cfg, cfg.Validate()
}

func newClient(cfg config.Config) (*gdrive.Client, error) {
	return gdrive.NewClient(gdrive.Options{
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Proxy:     cfg.Proxy,
		Timeout:   cfg.Timeout,
		ChunkSize: cfg.ChunkSize,
	})
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("%s version %s\n", c.App.Name, c.App.Version)
			return nil
		},
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download a shared file",
		ArgsUsage: "<url-or-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: filename reported by Drive)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory for downloads without an explicit --output",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Overwrite an existing file",
			},
			&cli.BoolFlag{
				Name:    "skip",
				Aliases: []string{"s"},
				Usage:   "Skip the download when the file already exists",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"e"},
				Usage:   "Export format for Docs, Sheets and Slides (e.g. pdf, ms, docx, xlsx, pptx)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			urls := c.Args().Slice()
			if len(urls) == 0 && !term.IsTerminal(int(os.Stdin.Fd())) {
				// Piped input: one URL per line, an optional "end" stops.
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					if scanner.Text() == "end" {
						break
					}
					if line := scanner.Text(); line != "" {
						urls = append(urls, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			}
			if len(urls) == 0 {
				return fmt.Errorf("a URL or file ID is required, see '%s download --help'", c.App.Name)
			}
			req := gdrive.DownloadRequest{
				Dir:       c.String("dir"),
				Overwrite: c.Bool("overwrite"),
				Skip:      c.Bool("skip"),
				Format:    c.String("format"),
			}
			if !cfg.Quiet {
				req.Progress = gdrive.ConsoleProgress(os.Stdout)
			}
			if len(urls) == 1 {
				req.URL = urls[0]
				req.Output = c.String("output")
				meta, err := client.Download(c.Context, req)
				if err != nil {
					return err
				}
				printResult(cfg.Quiet, meta)
				return nil
			}
			for _, u := range urls {
				req.URL = u
				meta, err := client.Download(c.Context, req)
				if err != nil {
					fmt.Fprintf(os.Stderr, "## Skipped: %v\n", err)
					continue
				}
				printResult(cfg.Quiet, meta)
			}
			return nil
		},
	}
}

func printResult(quiet bool, meta *gdrive.FileMetadata) {
	if !quiet {
		fmt.Printf("\n")
	}
	if meta.Skipped {
		fmt.Printf("Downloading '%s' was skipped because it already exists.\n", meta.Name)
		return
	}
	fmt.Printf("{\"Filename\": %q, \"MimeType\": %q, \"FileSize\": %d}\n", meta.Name, meta.MimeType, meta.Size)
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show file metadata (requires an API key)",
		ArgsUsage: "<url-or-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print metadata as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Args().Len() != 1 {
				return fmt.Errorf("a URL or file ID is required, see '%s info --help'", c.App.Name)
			}
			link, err := gdrive.ParseLink(c.Args().First())
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			meta, err := client.GetMetadata(c.Context, link.ID)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				out, err := json.Marshal(meta)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", out)
				return nil
			}
			fmt.Println(meta.Format())
			return nil
		},
	}
}

func folderCommand() *cli.Command {
	return &cli.Command{
		Name:      "folder",
		Usage:     "Download or list a shared folder (requires an API key)",
		ArgsUsage: "<url-or-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory to download into (default: current directory)",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List the folder contents without downloading",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Overwrite existing files",
			},
			&cli.BoolFlag{
				Name:    "skip",
				Aliases: []string{"s"},
				Usage:   "Skip files that already exist",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Args().Len() != 1 {
				return fmt.Errorf("a folder URL or ID is required, see '%s folder --help'", c.App.Name)
			}
			link, err := gdrive.ParseLink(c.Args().First())
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			if c.Bool("list") {
				entries, err := client.ListFolder(c.Context, link.ID)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if e.IsFolder {
						fmt.Printf("Folder: %s\n", e.Path)
					} else {
						fmt.Printf("File: %s (%s)\n", e.Path, gdrive.FormatBytes(e.Size))
					}
				}
				return nil
			}
			req := gdrive.DownloadRequest{
				Overwrite: c.Bool("overwrite"),
				Skip:      c.Bool("skip"),
			}
			if !cfg.Quiet {
				req.Progress = gdrive.ConsoleProgress(os.Stdout)
			}
			result, err := client.DownloadFolder(c.Context, link.ID, c.String("dir"), req)
			if err != nil {
				return err
			}
			if !cfg.Quiet {
				fmt.Printf("\n")
			}
			fmt.Printf("Downloaded %d files from folder '%s'.\n", len(result.Files), result.FolderName)
			for _, f := range result.Files {
				fmt.Println("  -", f)
			}
			if len(result.SkippedIDs) > 0 {
				fmt.Printf("Skipped %d Apps Script projects; they cannot be downloaded with an API key.\n", len(result.SkippedIDs))
			}
			return nil
		},
	}
}
