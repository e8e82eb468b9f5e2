package server

import (
	"github.com/ops-gateway/pkg/config"
	"github.com/ops-gateway/pkg/logging"
)

// Reload rebuilds the routing table from cfg and publishes it with a
// single atomic swap. On failure the previous generation stays live.
// Only the backend mappings are reloadable; listener and timeout settings
// keep their startup values.
func (g *Gateway) Reload(cfg *config.Config) error {
	table, err := cfg.BuildTable()
	if err != nil {
		g.collector.RecordReload(false)
		logging.Errorf("[reload] rejected: %v", err)
		return err
	}

	g.gen.Store(&generation{table: table, rr: make([]uint64, table.Len())})
	g.collector.RecordReload(true)
	logging.Logf("[reload] routing table replaced groups=%d catch_all=%q",
		table.Len(), table.Group(table.CatchAll()).Pattern)
	return nil
}
