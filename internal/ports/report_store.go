package ports

import "github.com/aalvaropc/procblock/internal/domain"

// ReportStore persists batch reports.
type ReportStore interface {
	SaveReport(b domain.BatchResult) (id string, err error)
	ListReports() ([]domain.BatchRef, error)
	LoadReport(id string) (domain.BatchResult, error)
}
