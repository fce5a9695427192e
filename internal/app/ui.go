package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/surveyx/nco"
)

const previewRows = 10

type uiState struct {
	svc    *nco.Service
	logger *slog.Logger

	w    fyne.Window
	tabs *container.AppTabs

	mu        sync.RWMutex
	survey    *nco.Dataset
	surveyErr error

	countLabel   *widget.Label
	previewTbl   *widget.Table
	previewData  [][]string
	columnSel    *widget.Select
	valueEntry   *widget.Entry
	filterBtn    *widget.Button
	exportBtn    *widget.Button
	filterTbl    *widget.Table
	filterData   [][]string
	filterStatus *widget.Label

	queryEntry   *widget.Entry
	topKSlider   *widget.Slider
	topKLabel    *widget.Label
	searchBtn    *widget.Button
	resultTbl    *widget.Table
	resultData   [][]string
	searchStatus binding.String
}

func buildUI(a fyne.App, svc *nco.Service, logger *slog.Logger, logBind binding.String) *uiState {
	u := &uiState{svc: svc, logger: logger.With("component", "ui")}
	u.w = a.NewWindow("SurveyX - Survey Explorer & NCO Search")

	u.tabs = container.NewAppTabs(
		container.NewTabItem("Survey Data", u.buildSurveyTab()),
		container.NewTabItem("NCO Search", u.buildSearchTab()),
	)

	logView := widget.NewEntryWithData(logBind)
	logView.MultiLine = true
	logView.Wrapping = fyne.TextWrapWord
	logView.SetPlaceHolder("log")
	logView.Disable()

	split := container.NewVSplit(u.tabs, logView)
	split.Offset = 0.8
	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	return u
}

func (u *uiState) buildSurveyTab() fyne.CanvasObject {
	u.countLabel = widget.NewLabel("Loading survey data...")
	u.previewTbl = newDataTable(func() [][]string { return u.previewData })

	u.columnSel = widget.NewSelect(nil, nil)
	u.columnSel.PlaceHolder = "Select column"
	u.valueEntry = widget.NewEntry()
	u.valueEntry.SetPlaceHolder("Search value")
	u.valueEntry.OnSubmitted = func(string) { u.onFilter() }
	u.filterBtn = widget.NewButtonWithIcon("Search", theme.SearchIcon(), func() { u.onFilter() })
	u.exportBtn = widget.NewButtonWithIcon("Export CSV", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.filterStatus = widget.NewLabel("")
	u.filterTbl = newDataTable(func() [][]string { return u.filterData })

	controls := container.NewBorder(nil, nil,
		u.columnSel,
		container.NewHBox(u.filterBtn, u.exportBtn),
		u.valueEntry,
	)
	top := container.NewVBox(
		widget.NewLabelWithStyle("Survey Data Explorer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.countLabel,
	)
	bottom := container.NewBorder(
		container.NewVBox(controls, u.filterStatus), nil, nil, nil,
		u.filterTbl,
	)
	split := container.NewVSplit(u.previewTbl, bottom)
	split.Offset = 0.45
	return container.NewBorder(top, nil, nil, nil, split)
}

func (u *uiState) buildSearchTab() fyne.CanvasObject {
	cfg := u.svc.Config()
	u.queryEntry = widget.NewEntry()
	u.queryEntry.SetPlaceHolder("Enter job title")
	u.queryEntry.OnSubmitted = func(string) { u.onSearch() }

	u.topKLabel = widget.NewLabel("")
	u.topKSlider = widget.NewSlider(1, float64(cfg.Search.MaxTopK))
	u.topKSlider.Step = 1
	u.topKSlider.OnChanged = func(v float64) {
		u.topKLabel.SetText(fmt.Sprintf("Top-K: %d", sliderTopK(v, cfg.Search.MaxTopK)))
	}
	u.topKSlider.SetValue(float64(cfg.Search.TopK))
	u.topKLabel.SetText(fmt.Sprintf("Top-K: %d", cfg.Search.TopK))

	u.searchBtn = widget.NewButtonWithIcon("Search", theme.SearchIcon(), func() { u.onSearch() })
	u.searchStatus = binding.NewString()
	_ = u.searchStatus.Set("Ready")
	u.resultData = searchTable(nil)
	u.resultTbl = newDataTable(func() [][]string { return u.resultData })
	u.resultTbl.SetColumnWidth(0, 360)
	u.resultTbl.SetColumnWidth(1, 120)
	u.resultTbl.SetColumnWidth(2, 120)

	form := container.NewVBox(
		widget.NewLabelWithStyle("NCO Code Search", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, u.searchBtn, u.queryEntry),
		container.NewBorder(nil, nil, u.topKLabel, nil, u.topKSlider),
		widget.NewLabelWithData(u.searchStatus),
	)
	return container.NewBorder(form, nil, nil, nil, u.resultTbl)
}

func newDataTable(data func() [][]string) *widget.Table {
	return widget.NewTable(
		func() (int, int) {
			d := data()
			if len(d) == 0 {
				return 0, 0
			}
			return len(d), len(d[0])
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			d := data()
			if id.Row >= len(d) || id.Col >= len(d[id.Row]) {
				lbl.SetText("")
				return
			}
			if id.Row == 0 {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
			} else {
				lbl.TextStyle = fyne.TextStyle{}
			}
			lbl.SetText(d[id.Row][id.Col])
		},
	)
}

// setSurvey installs the survey dataset. It must run on the main goroutine.
func (u *uiState) setSurvey(ds *nco.Dataset, err error) {
	u.mu.Lock()
	u.survey = ds
	u.surveyErr = err
	u.mu.Unlock()

	u.countLabel.SetText(surveySummary(ds, err))
	if err != nil {
		u.previewData = nil
		u.columnSel.Options = nil
		u.filterBtn.Disable()
		u.exportBtn.Disable()
	} else {
		u.previewData = datasetTable(ds.Head(previewRows))
		u.columnSel.Options = append([]string(nil), ds.Columns...)
		u.filterBtn.Enable()
		u.exportBtn.Enable()
	}
	u.columnSel.ClearSelected()
	u.columnSel.Refresh()
	u.previewTbl.Refresh()
}

func (u *uiState) currentSurvey() (*nco.Dataset, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.surveyErr != nil {
		return nil, u.surveyErr
	}
	if u.survey == nil {
		return nil, nco.ErrDataNotFound
	}
	return u.survey, nil
}

func (u *uiState) warn(err error) {
	dialog.ShowInformation("Warning", err.Error(), u.w)
}

func (u *uiState) onFilter() {
	column := u.columnSel.Selected
	value := u.valueEntry.Text
	if err := checkFilter(column, value); err != nil {
		u.warn(err)
		return
	}
	ds, err := u.currentSurvey()
	if err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	out, err := ds.FilterContains(column, value)
	if err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	u.filterData = datasetTable(out)
	u.filterTbl.Refresh()
	u.filterStatus.SetText(fmt.Sprintf("%d matching rows", out.Len()))
	u.logger.Info("survey filtered", "column", column, "value", value, "rows", out.Len())
}

func (u *uiState) onExport() {
	ds, err := u.currentSurvey()
	if err != nil {
		dialog.ShowInformation("Info", "No survey data to export", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()
		if err := ds.WriteCSV(uc); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info("survey exported", "path", uc.URI().Path(), "rows", ds.Len())
	}, u.w)
	fd.SetFileName("survey_data.csv")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

func (u *uiState) onSearch() {
	query := u.queryEntry.Text
	if err := checkQuery(query); err != nil {
		u.warn(err)
		return
	}
	topK := sliderTopK(u.topKSlider.Value, u.svc.Config().Search.MaxTopK)
	u.searchBtn.Disable()
	_ = u.searchStatus.Set("Searching...")

	go func() {
		data, err := u.runSearch(context.Background(), query, topK)
		fyne.Do(func() {
			u.searchBtn.Enable()
			if err != nil {
				_ = u.searchStatus.Set("Error")
				dialog.ShowError(err, u.w)
				return
			}
			u.resultData = data
			u.resultTbl.Refresh()
			_ = u.searchStatus.Set(fmt.Sprintf("%d results", len(data)-1))
		})
	}()
}

func (u *uiState) runSearch(ctx context.Context, query string, topK int) ([][]string, error) {
	results, err := u.svc.Search(ctx, query, topK)
	if err != nil {
		u.logger.Error("search failed", "query", query, "error", err)
		return nil, err
	}
	return searchTable(results), nil
}
