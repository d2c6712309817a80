package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aalvaropc/procblock/internal/domain"
	"github.com/aalvaropc/procblock/internal/infra/diaglog"
	"github.com/aalvaropc/procblock/internal/usecase"
)

func cmdRefreshWorkspace(deps Deps) tea.Cmd {
	return func() tea.Msg {
		wd, err := os.Getwd()
		if err != nil {
			return workspaceRefreshedMsg{cwd: "", found: false, err: fmt.Errorf("getwd: %w", err)}
		}
		if deps.WorkspaceLocator == nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: errors.New("WorkspaceLocator is nil")}
		}

		root, findErr := deps.WorkspaceLocator.FindRoot(wd)
		if findErr != nil {
			return workspaceRefreshedMsg{cwd: wd, found: false, err: findErr}
		}

		return workspaceRefreshedMsg{cwd: wd, found: true, root: root, err: nil}
	}
}

func cmdInitWorkspaceHere(deps Deps, root string) tea.Cmd {
	return func() tea.Msg {
		if deps.WorkspaceInitializer == nil {
			return initWorkspaceDoneMsg{root: root, err: errors.New("WorkspaceInitializer is nil")}
		}

		err := deps.WorkspaceInitializer.Init(domain.WorkspaceSpec{Root: root}, false)
		return initWorkspaceDoneMsg{root: root, err: err}
	}
}

func cmdLoadReports(deps Deps) tea.Cmd {
	return func() tea.Msg {
		if deps.Reports == nil {
			return reportsLoadedMsg{err: errors.New("report store is not configured")}
		}
		refs, err := deps.Reports.ListReports()
		return reportsLoadedMsg{refs: refs, err: err}
	}
}

// channelObserver forwards batch progress to the program as messages.
type channelObserver struct {
	ch chan<- tea.Msg
}

var _ usecase.BatchObserver = channelObserver{}

func (o channelObserver) BatchStarted(id string, total int) {
	o.ch <- batchStartedMsg{id: id, total: total}
}

func (o channelObserver) FileStarted(index int, ref domain.DrawingRef) {
	o.ch <- fileStartedMsg{index: index, ref: ref}
}

func (o channelObserver) FileDone(index int, result domain.FileResult) {
	o.ch <- fileDoneMsg{index: index, result: result}
}

func listenBatch(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return batchDoneMsg{err: errors.New("batch channel closed")}
		}
		return msg
	}
}

type batchHandle struct {
	events <-chan tea.Msg
	diag   *diaglog.Collector
	cancel context.CancelFunc
}

// startBatchAsync runs the batch on its own goroutine. Progress arrives on
// the returned channel, which is closed after the final batchDoneMsg.
func startBatchAsync(deps Deps, dryRun bool) (batchHandle, error) {
	if deps.NewBatch == nil {
		return batchHandle{}, errors.New("batch runner is not configured")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	ch := make(chan tea.Msg, 16)
	diag := diaglog.NewCollector(log)
	runner := deps.NewBatch(diag, channelObserver{ch: ch}, dryRun)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(ch)

		log.Info("tui.batch.start", "input_dir", deps.InputDir, "dry_run", dryRun, "debug", deps.Debug)
		batch, err := runner.Execute(ctx, deps.InputDir)
		if err != nil {
			log.Error("tui.batch.failed", "err", err, "report_id", batch.ReportID)
		} else {
			c := batch.Counts()
			log.Info("tui.batch.done", "report_id", batch.ReportID, "ok", c.OK, "skipped", c.Skipped, "failed", c.Failed)
		}

		ch <- batchDoneMsg{batch: batch, err: err}
	}()

	return batchHandle{events: ch, diag: diag, cancel: cancel}, nil
}
