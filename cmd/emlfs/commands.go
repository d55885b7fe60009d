package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/brandon/emlfs/internal/mcp"
	"github.com/brandon/emlfs/internal/resolver"
	"github.com/brandon/emlfs/internal/tools"
	"github.com/brandon/emlfs/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [email files...]",
		Short: "Serve projections over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, source := range args {
				if _, err := a.mounts.EnsureRegistered(source); err != nil {
					return err
				}
			}

			registry, err := tools.NewRegistry(a.provider, a.mounts, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create tool registry: %w", err)
			}
			server := mcp.NewServer(registry, version, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.MetricsAddr != "" {
				serveMetrics(ctx, a, a.cfg.MetricsAddr)
			}

			a.logger.Info("Starting emlfs MCP server")
			err = server.Run(ctx, os.Stdin, os.Stdout)
			a.logger.Info("Shutting down emlfs MCP server")
			return err
		},
	}
	cmd.Flags().String("metrics-addr", "", "Listen address for /metrics and /healthz (overrides EMLFS_METRICS_ADDR)")
	return cmd
}

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <email file>",
		Short: "List the index page and attachments of an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mounts.EnsureRegistered(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			entries, err := a.provider.ReadDirectory(ctx, m.RootURI)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				st, err := a.provider.Stat(ctx, a.resolver.URI(m.Source, e.Name))
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, humanize.Bytes(uint64(st.Size)), humanize.Time(st.ModifiedAt))
			}
			return w.Flush()
		},
	}
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <email file> [name]",
		Short: "Show metadata of an email projection or one of its files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mounts.EnsureRegistered(args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}

			st, err := a.provider.Stat(cmd.Context(), resolver.Join(m.Source, name))
			if err != nil {
				return err
			}
			if st.Kind == types.KindUnknown {
				return fmt.Errorf("%s: %w", resolver.Join(m.Source, name), types.ErrPathNotResolved)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uri:      %s\n", a.resolver.URI(m.Source, name))
			fmt.Fprintf(out, "kind:     %s\n", st.Kind)
			fmt.Fprintf(out, "size:     %d (%s)\n", st.Size, humanize.Bytes(uint64(st.Size)))
			fmt.Fprintf(out, "created:  %s\n", st.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "modified: %s\n", st.ModifiedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <email file> <name>",
		Short: "Write an attachment or the index page to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mounts.EnsureRegistered(args[0])
			if err != nil {
				return err
			}
			return writeFile(cmd.Context(), a, cmd, resolver.Join(m.Source, args[1]))
		},
	}
}

func newHTMLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "html <email file>",
		Short: "Write the rendered index page to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mounts.EnsureRegistered(args[0])
			if err != nil {
				return err
			}
			return writeFile(cmd.Context(), a, cmd, m.IndexURI)
		},
	}
}

func writeFile(ctx context.Context, a *app, cmd *cobra.Command, uri string) error {
	st, err := a.provider.Stat(ctx, uri)
	if err != nil {
		return err
	}
	if st.Kind != types.KindFile {
		return fmt.Errorf("%s is not a file", uri)
	}
	content, err := a.provider.ReadFile(ctx, uri)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(content)
	return err
}
