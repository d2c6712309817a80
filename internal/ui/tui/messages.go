package tui

import "github.com/aalvaropc/procblock/internal/domain"

type workspaceRefreshedMsg struct {
	cwd   string
	found bool
	root  string
	err   error
}

type initWorkspaceDoneMsg struct {
	root string
	err  error
}

type reportsLoadedMsg struct {
	refs []domain.BatchRef
	err  error
}

type batchStartedMsg struct {
	id    string
	total int
}

type fileStartedMsg struct {
	index int
	ref   domain.DrawingRef
}

type fileDoneMsg struct {
	index  int
	result domain.FileResult
}

type batchDoneMsg struct {
	batch domain.BatchResult
	err   error
}
