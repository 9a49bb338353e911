package main

import (
	"fmt"
	"io"
	"net/http"

	"narcosim.ai/internal/sim/engine"
)

func metricsHandler(e *engine.Engine, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		v, err := currentView(r.Context(), e)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeGameMetrics(rw, e.GameID(), e.QueueDepth(), e.CommandSeq(), v)
		if idx != nil {
			writeIndexMetrics(rw, idx)
		}
	}
}

// writeGameMetrics renders a view in the Prometheus text exposition format.
func writeGameMetrics(w io.Writer, gameID string, queueDepth int, commandSeq uint64, v engine.View) {
	if v.State == nil {
		return
	}
	s := v.State

	fmt.Fprintf(w, "# HELP narcosim_game_day Current game day.\n")
	fmt.Fprintf(w, "# TYPE narcosim_game_day gauge\n")
	fmt.Fprintf(w, "narcosim_game_day{game=%q} %d\n", gameID, s.Day)

	fmt.Fprintf(w, "# HELP narcosim_game_over Whether the game has ended (1) or not (0).\n")
	fmt.Fprintf(w, "# TYPE narcosim_game_over gauge\n")
	over := 0
	if s.GameOver {
		over = 1
	}
	fmt.Fprintf(w, "narcosim_game_over{game=%q,outcome=%q} %d\n", gameID, string(s.Outcome), over)

	fmt.Fprintf(w, "# HELP narcosim_player_cash Player cash on hand.\n")
	fmt.Fprintf(w, "# TYPE narcosim_player_cash gauge\n")
	fmt.Fprintf(w, "narcosim_player_cash{game=%q} %.2f\n", gameID, s.Player.Cash)

	fmt.Fprintf(w, "# HELP narcosim_player_net_worth Player net worth.\n")
	fmt.Fprintf(w, "# TYPE narcosim_player_net_worth gauge\n")
	fmt.Fprintf(w, "narcosim_player_net_worth{game=%q} %.2f\n", gameID, v.NetWorth)

	fmt.Fprintf(w, "# HELP narcosim_region_heat Police heat per region.\n")
	fmt.Fprintf(w, "# TYPE narcosim_region_heat gauge\n")
	for _, id := range s.RegionOrder {
		fmt.Fprintf(w, "narcosim_region_heat{game=%q,region=%q} %d\n", gameID, id, s.Regions[id].Heat)
	}

	fmt.Fprintf(w, "# HELP narcosim_heat_average Average heat across regions.\n")
	fmt.Fprintf(w, "# TYPE narcosim_heat_average gauge\n")
	fmt.Fprintf(w, "narcosim_heat_average{game=%q} %.3f\n", gameID, v.AvgHeat)

	fmt.Fprintf(w, "# HELP narcosim_engine_queue_depth Engine inbox backlog depth.\n")
	fmt.Fprintf(w, "# TYPE narcosim_engine_queue_depth gauge\n")
	fmt.Fprintf(w, "narcosim_engine_queue_depth{game=%q} %d\n", gameID, queueDepth)

	fmt.Fprintf(w, "# HELP narcosim_commands_total Commands handled, including rejected ones.\n")
	fmt.Fprintf(w, "# TYPE narcosim_commands_total counter\n")
	fmt.Fprintf(w, "narcosim_commands_total{game=%q} %d\n", gameID, commandSeq)
}

func writeIndexMetrics(w io.Writer, idx runtimeIndex) {
	s := idx.Stats()
	fmt.Fprintf(w, "# HELP narcosim_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(w, "# TYPE narcosim_index_queue_depth gauge\n")
	fmt.Fprintf(w, "narcosim_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(w, "# HELP narcosim_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(w, "# TYPE narcosim_index_queue_capacity gauge\n")
	fmt.Fprintf(w, "narcosim_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(w, "# HELP narcosim_index_dropped_total Index rows dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE narcosim_index_dropped_total counter\n")
	fmt.Fprintf(w, "narcosim_index_dropped_total{kind=%q} %d\n", "turn", s.DropTurnTotal)
	fmt.Fprintf(w, "narcosim_index_dropped_total{kind=%q} %d\n", "command", s.DropCommandTotal)
	fmt.Fprintf(w, "narcosim_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)

	fmt.Fprintf(w, "# HELP narcosim_index_write_errors_total Failed index transactions.\n")
	fmt.Fprintf(w, "# TYPE narcosim_index_write_errors_total counter\n")
	fmt.Fprintf(w, "narcosim_index_write_errors_total %d\n", s.WriteErrorTotal)
}
