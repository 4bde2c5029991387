// moonctl 月画像テーブルの管理ツール
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"meteo_discord_bot/internal/moon"
	"meteo_discord_bot/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	databaseURL string
	mediaDir    string
	attempts    int
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "moonctl",
		Short:        "Manage moon phase images stored in Postgres",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.databaseURL) == "" {
				return errors.New("DATABASE_URL is required (flag --database-url or environment)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	root.PersistentFlags().StringVar(&opts.mediaDir, "media-dir", envOr("MEDIA_DIR", "media"), "directory for exported images")
	root.PersistentFlags().IntVar(&opts.attempts, "attempts", store.DefaultMaxAttempts, "connection attempts before giving up")

	root.AddCommand(newImportCmd(opts), newListCmd(opts), newExportCmd(opts))
	return root
}

func (o *rootOptions) withDB(ctx context.Context, fn func(*sql.DB) error) error {
	return store.WithDB(ctx, o.databaseURL, store.Options{
		MaxAttempts: o.attempts,
		RetryDelay:  store.DefaultRetryDelay,
	}, fn)
}

type importFlags struct {
	date        string
	crop        string
	defaultCrop bool
}

// resolve 日付と切り抜き範囲を DB に触る前に検証する
func (f importFlags) resolve() (time.Time, *moon.Crop, error) {
	day, err := moon.ParseDay(f.date)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("--date %q: %w", f.date, err)
	}
	if f.crop != "" && f.defaultCrop {
		return time.Time{}, nil, errors.New("--crop and --default-crop are mutually exclusive")
	}
	if f.defaultCrop {
		c := moon.DefaultCrop
		return day, &c, nil
	}
	crop, err := moon.ParseCrop(f.crop)
	if err != nil {
		return time.Time{}, nil, err
	}
	return day, crop, nil
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import <image>",
		Short: "Store a moon image for a day",
		Example: "  moonctl import --date 20.02.2023 --default-crop moon.jpg\n" +
			"  moonctl import --date 21.02.2023 --crop 0,0,800,600 moon.png",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, crop, err := flags.resolve()
			if err != nil {
				return err
			}
			return opts.withDB(cmd.Context(), func(db *sql.DB) error {
				catalog := moon.NewCatalog(store.NewMoonRepository(db), opts.mediaDir)
				rec, err := catalog.Import(cmd.Context(), day, args[0], crop)
				if errors.Is(err, store.ErrDuplicate) {
					return fmt.Errorf("%s: %w", day.Format("02.01.2006"), err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported #%d for %s (%d bytes)\n", rec.ID, day.Format("02.01.2006"), len(rec.Image))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.date, "date", "", "day in dd.mm.yyyy format")
	cmd.Flags().StringVar(&flags.crop, "crop", "", "crop box as left,top,right,bottom")
	cmd.Flags().BoolVar(&flags.defaultCrop, "default-crop", false, "use the standard telescope crop box")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored moon images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(cmd.Context(), func(db *sql.DB) error {
				records, err := store.NewMoonRepository(db).All(cmd.Context())
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dd.mm.yyyy>",
		Short: "Write the stored image for a day into the media directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := moon.ParseDay(args[0])
			if err != nil {
				return err
			}
			return opts.withDB(cmd.Context(), func(db *sql.DB) error {
				catalog := moon.NewCatalog(store.NewMoonRepository(db), opts.mediaDir)
				path, err := catalog.FindByDate(cmd.Context(), day)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func printRecords(w io.Writer, records []store.MoonRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No moon images stored.")
		return
	}
	fmt.Fprintf(w, "%-6s %-10s %10s  %s\n", "ID", "DATE", "BYTES", "CREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%-6d %-10s %10d  %s\n", r.ID, r.Date.UTC().Format("02.01.2006"), len(r.Image), r.Created.Format("2006-01-02 15:04:05"))
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
