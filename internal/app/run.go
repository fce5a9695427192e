package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/surveyx/nco"
)

const fyneAppID = "yashubustudio.surveyx"

// Run loads configuration, data and the embedding model and starts the
// desktop UI.
func Run() error {
	a := fyneapp.NewWithID(fyneAppID)

	logBind := binding.NewString()
	pane := newLogPane(logLineLimit, func(text string) { _ = logBind.Set(text) })
	defer pane.Close()
	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, pane), nil))

	cfg, err := nco.LoadConfig("")
	if err != nil {
		return showFatalError(a, fmt.Errorf("load config: %w", err))
	}
	embedder, err := nco.NewEmbedder(cfg.Embedder, logger)
	if err != nil {
		return showFatalError(a, fmt.Errorf("init embedder: %w", err))
	}
	svc, err := nco.NewService(embedder, cfg, logger)
	if err != nil {
		embedder.Close()
		return showFatalError(a, fmt.Errorf("init service: %w", err))
	}
	defer svc.Close()

	u := buildUI(a, svc, logger, logBind)
	u.setSurvey(nco.LoadSurveyPath(cfg.Data.SurveyCtl))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = u.searchStatus.Set("Loading occupation index...")
		idx, err := svc.LoadLookupFile(ctx, cfg.Data.LookupPath)
		if err != nil {
			_ = u.searchStatus.Set("Lookup table unavailable: " + err.Error())
			return
		}
		_ = u.searchStatus.Set(fmt.Sprintf("Ready (%d occupations)", idx.Len()))
	}()

	if cfg.Data.WatchLookup {
		watcher, err := nco.WatchLookup(ctx, svc, cfg.Data.LookupPath, nco.WatchOptions{
			Logger: logger,
			OnReload: func(idx *nco.EmbeddingIndex, err error) {
				if err == nil {
					_ = u.searchStatus.Set(fmt.Sprintf("Reloaded (%d occupations)", idx.Len()))
				}
			},
		})
		if err != nil {
			logger.Warn("lookup watch disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	u.w.ShowAndRun()
	return nil
}

func showFatalError(a fyne.App, err error) error {
	win := a.NewWindow("SurveyX")
	win.SetContent(widget.NewLabel(err.Error()))
	dialog.ShowError(err, win)
	win.ShowAndRun()
	return err
}
