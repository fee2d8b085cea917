// Command pdfterm reads a PDF one page at a time in the terminal.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	config "github.com/drummonds/pdfreader/config"
	"github.com/drummonds/pdfreader/engine/pdfrenderer"
	"github.com/drummonds/pdfreader/internal/build"
	"github.com/drummonds/pdfreader/navigator"
	"github.com/drummonds/pdfreader/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the `pdfterm` command
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pdfterm [file]",
		Short:   "Read a PDF page by page in the terminal",
		Version: build.Version,
		Args:    cobra.MaximumNArgs(1),
		Long: `pdfterm shows one page of a PDF at a time using half-block characters.
Use ←/→ (or h/l, p/n, space) to turn pages, g/G for the first and last page,
o to open another file and q to quit.`,
	}
	cmd.PersistentFlags().String("renderer", "fitz", "Page renderer: fitz, pdfium or remote")
	cmd.PersistentFlags().String("service-url", "", "Render service URL for the remote renderer")
	cmd.PersistentFlags().Float64("zoom", config.DefaultDesktopZoom, "Zoom factor, 1.0 is 72 DPI")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// the TUI owns the terminal, so logs always go to the log file
		logger := config.SetupLogging()
		config.Logger = logger
		pdfrenderer.Logger = logger
		tui.Logger = logger
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		session, renderer, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer renderer.Shutdown()
		defer session.Close()

		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		model := tui.New(session, path, documentTitle)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			return err
		}
		return nil
	}

	cmd.AddCommand(newRenderCmd(), newInfoCmd())
	return cmd
}

// newRenderCmd creates the `render` subcommand
func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render one page to a PNG file",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int("page", 1, "Page number, starting at 1")
	cmd.Flags().StringP("out", "o", "page.png", "Output PNG file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		out, _ := cmd.Flags().GetString("out")

		session, renderer, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer renderer.Shutdown()
		defer session.Close()

		if err := session.Open(navigator.FromPath(args[0])); err != nil {
			return err
		}
		if _, err := session.Seek(page - 1); err != nil {
			return fmt.Errorf("page %d: %w (document has %d pages)", page, err, session.State().Total)
		}
		raster, err := session.RenderCurrentPage()
		if err != nil {
			return err
		}
		if err := imaging.Save(raster.Image(), out); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote page %d (%dx%d) to %s\n", page, raster.Width, raster.Height, out)
		return nil
	}
	return cmd
}

// newInfoCmd creates the `info` subcommand
func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print document metadata and page count",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		session, renderer, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer renderer.Shutdown()
		defer session.Close()

		src := navigator.FromPath(args[0])
		if err := session.Open(src); err != nil {
			return err
		}
		info, err := pdfrenderer.Probe(src)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "File:     %s\n", args[0])
		fmt.Fprintf(w, "Name:     %s\n", pdfrenderer.DisplayName(src, info))
		if info.Title != "" {
			fmt.Fprintf(w, "Title:    %s\n", info.Title)
		}
		if info.Author != "" {
			fmt.Fprintf(w, "Author:   %s\n", info.Author)
		}
		fmt.Fprintf(w, "Pages:    %d\n", session.State().Total)
		fmt.Fprintf(w, "Renderer: %s\n", renderer.Name())
		return nil
	}
	return cmd
}

// newSession builds a renderer and an empty session from the persistent flags
func newSession(cmd *cobra.Command) (*navigator.Session, pdfrenderer.Renderer, error) {
	kind, _ := cmd.Flags().GetString("renderer")
	serviceURL, _ := cmd.Flags().GetString("service-url")
	zoom, _ := cmd.Flags().GetFloat64("zoom")

	renderer, err := pdfrenderer.NewRenderer(kind, pdfrenderer.Options{ServiceURL: serviceURL})
	if err != nil {
		return nil, nil, err
	}
	session, err := navigator.New(renderer, zoom)
	if err != nil {
		renderer.Shutdown()
		return nil, nil, err
	}
	return session, renderer, nil
}

// documentTitle returns the Info dictionary title, if any
func documentTitle(src navigator.Source) string {
	info, err := pdfrenderer.Probe(src)
	if err != nil {
		return ""
	}
	return info.Title
}
