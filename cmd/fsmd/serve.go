package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/docfile"
	"github.com/ha1tch/fsm-designer/pkg/interact"
	"github.com/ha1tch/fsm-designer/pkg/server"
	"github.com/ha1tch/fsm-designer/pkg/store"
)

func openStore(log *zap.Logger) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(cfg.Storage.Path, log)
}

func serveCmd() *cobra.Command {
	var addr, slot string

	cmd := &cobra.Command{
		Use:   "serve [input]",
		Short: "Serve a diagram over HTTP",
		Long: `Serve a diagram over HTTP.

Routes:
  GET  /api/diagram   current document
  PUT  /api/diagram   replace the document (400 if malformed)
  POST /api/undo      undo the last change
  POST /api/redo      redo
  POST /api/arrange   auto-layout (?layout=layered|grid|circle)
  GET  /export.svg, /export.png?scale=N, /export.dot?title=T

Without an input file the diagram is loaded from the storage slot. Every
change is saved back to the slot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			if slot == "" {
				slot = cfg.Storage.Slot
			}
			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var g *diagram.Graph
			if len(args) == 1 {
				if g, err = loadGraph(args[0]); err != nil {
					return err
				}
			} else {
				var loaded bool
				if g, loaded, err = st.LoadGraph(ctx, slot); err != nil {
					return err
				}
				if !loaded {
					log.Info("slot empty, serving starter diagram", zap.String("slot", slot))
				}
			}

			ctrl := interact.New(g, interact.WithLogger(log))
			srv := server.New(ctrl,
				server.WithLogger(log),
				server.WithSaver(st, slot),
				server.WithTitle(slot))

			fmt.Printf("%s serving on %s (slot %s)\n", brand.Sprint("fsmd"), addr, subtle.Sprint(slot))
			err = srv.ListenAndServe(ctx, addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&slot, "slot", "", "storage slot (default from config)")
	return cmd
}

func slotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Manage diagrams kept in the storage database",
	}

	withStore := func(fn func(ctx context.Context, st *store.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()
			return fn(cmd.Context(), st, args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List slots",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
			names, err := st.Slots(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		}),
	}

	save := &cobra.Command{
		Use:   "save <slot> <input>",
		Short: "Store a document file in a slot",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
			g, err := loadGraph(args[1])
			if err != nil {
				return err
			}
			if err := st.SaveGraph(ctx, args[0], g); err != nil {
				return err
			}
			fmt.Printf("%s %s -> %s\n", good.Sprint("Saved:"), args[1], args[0])
			return nil
		}),
	}

	var output string
	load := &cobra.Command{
		Use:   "load <slot>",
		Short: "Write a slot's document to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
			g, loaded, err := st.LoadGraph(ctx, args[0])
			if err != nil {
				return err
			}
			if !loaded {
				return fmt.Errorf("slot %s: %w", args[0], store.ErrNotFound)
			}
			data, err := docfile.Marshal(g, docfile.FormatFromPath(output))
			if err != nil {
				return err
			}
			if output == "" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			written(output)
			return nil
		}),
	}
	load.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	del := &cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a slot",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
			return st.Delete(ctx, args[0])
		}),
	}

	cmd.AddCommand(list, save, load, del)
	return cmd
}
