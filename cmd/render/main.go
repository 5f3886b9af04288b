// Command render turns a Markdown resume into a printable HTML page and,
// optionally, a PDF.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	infra "resume-canvas/pkg/infrastructure"

	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	in := cmd.Args().First()
	if in == "" {
		return errors.New("usage: render [flags] resume.md")
	}
	markdown, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}

	title := cmd.String("title")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	}

	pages, err := infra.NewDocumentRenderer()
	if err != nil {
		return err
	}
	page, err := pages.Page(title, string(markdown))
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	out := cmd.String("out")
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".html"
	}
	if err := os.WriteFile(out, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	slog.Info("wrote html", slog.String("path", out))

	pdfPath := cmd.String("pdf")
	if pdfPath == "" {
		return nil
	}
	renderer := infra.NewChromedpRenderer(cmd.String("chrome"), cmd.Duration("timeout"))
	pdf, err := renderer.RenderHTMLToPDF(ctx, page)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	slog.Info("wrote pdf", slog.String("path", pdfPath), slog.Int("bytes", len(pdf)))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "render",
		Usage:     "Render a Markdown resume to HTML and PDF",
		ArgsUsage: "resume.md",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "HTML output path (default: input with .html)"},
			&cli.StringFlag{Name: "pdf", Usage: "also print a PDF to this path"},
			&cli.StringFlag{Name: "title", Usage: "page title (default: input file name)"},
			&cli.StringFlag{Name: "chrome", Usage: "Chrome executable", Sources: cli.EnvVars("CHROME_PATH")},
			&cli.DurationFlag{Name: "timeout", Value: 60 * time.Second, Usage: "PDF render timeout"},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("render failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
