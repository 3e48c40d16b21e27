package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-embed/pkg/embedfile"
	"github.com/tendant/simple-embed/pkg/embedfile/api"
	"github.com/tendant/simple-embed/pkg/embedfile/config"
)

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			for _, id := range rt.registry.IDs() {
				file, err := rt.registry.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if file == nil {
					fmt.Fprintf(out, "%s\t-\n", id)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", id, file.ResourceOwner, file.ResourceString())
			}
			return nil
		},
	}
}

func NewCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat [id]",
		Short: "Print the content of a registered file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			file, err := lookup(cmd.Context(), rt.registry, args[0])
			if err != nil {
				return err
			}

			rc, err := file.ContentStream(cmd.Context())
			if err != nil {
				return err
			}
			if rc == nil {
				return fmt.Errorf("%w: %s", embedfile.ErrResourceNotFound, file.ResourceString())
			}
			defer rc.Close()

			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}

func NewExtractCommand() *cobra.Command {
	var outDir string
	var skipExisting bool
	var fileName string

	cmd := &cobra.Command{
		Use:   "extract [ids...]",
		Short: "Write registered files to a directory",
		Long: `Write registered files to a directory. With no ids every registered file is
extracted and failures are reported at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileName != "" && len(args) != 1 {
				return errors.New("--name requires exactly one id")
			}

			var extra []config.Option
			if outDir != "" {
				extra = append(extra, config.WithOutputDir(outDir))
			}
			if cmd.Flags().Changed("skip-existing") {
				extra = append(extra, config.WithSkipIfExisting(skipExisting))
			}
			rt, err := newRuntime(cmd, extra...)
			if err != nil {
				return err
			}
			defer rt.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			dir := rt.config.OutputDir

			if len(args) == 0 {
				report := rt.registry.ExtractAll(ctx, dir, rt.config.SkipIfExisting)
				for _, id := range report.Extracted {
					fmt.Fprintf(out, "extracted\t%s\n", id)
				}
				for _, id := range report.Skipped {
					fmt.Fprintf(out, "skipped\t%s\n", id)
				}
				if !report.OK() {
					return fmt.Errorf("%d of %d files failed to extract", len(report.Failed), rt.registry.Len())
				}
				return nil
			}

			for _, id := range args {
				file, err := lookup(ctx, rt.registry, id)
				if err != nil {
					return err
				}
				written, err := file.Extract(ctx, dir, embedfile.ExtractOptions{
					FileName:       fileName,
					SkipIfExisting: rt.config.SkipIfExisting,
				})
				if err != nil {
					return err
				}
				if written {
					fmt.Fprintf(out, "extracted\t%s\n", id)
				} else {
					fmt.Fprintf(out, "skipped\t%s\n", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (overrides EMBED_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "keep files that already exist")
	cmd.Flags().StringVar(&fileName, "name", "", "on-disk file name (single id only)")

	return cmd
}

func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve registered files over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []config.Option
			if addr != "" {
				extra = append(extra, config.WithAddr(addr))
			}
			rt, err := newRuntime(cmd, extra...)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              rt.config.Addr,
				Handler:           newRouter(api.NewHandler(rt.registry, rt.logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("Starting server", "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			rt.logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides EMBED_ADDR)")
	return cmd
}

func newRouter(h *api.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})
	r.Mount("/files", h.Routes())
	return r
}

func lookup(ctx context.Context, registry *embedfile.Registry, id string) (*embedfile.File, error) {
	file, err := registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("no file registered under %q", id)
	}
	return file, nil
}
