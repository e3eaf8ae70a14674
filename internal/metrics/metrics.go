// Package metrics exposes runtime counters via expvar.
package metrics

import "expvar"

var (
	RunsTotal          = expvar.NewInt("runs_total")
	RunsFailed         = expvar.NewInt("runs_failed")
	TablesConsolidated = expvar.NewInt("tables_consolidated")
	TablesSkipped      = expvar.NewInt("tables_skipped")
	TablesFailed       = expvar.NewInt("tables_failed")
	RowsAffectedTotal  = expvar.NewInt("rows_affected_total")
	FilesStagedTotal   = expvar.NewInt("files_staged_total")
	ReportsDispatched  = expvar.NewInt("reports_dispatched")
	ReportsFailed      = expvar.NewInt("reports_failed")
	CatalogRegistered  = expvar.NewInt("catalog_tables_registered")
	CatalogFailed      = expvar.NewInt("catalog_registrations_failed")
)
