/*
Package metrics defines and registers the farmer's Prometheus metrics.

All metrics register at package init via MustRegister. Handler returns
the HTTP handler that serves them; no command in this module mounts it,
so the metrics are not exposed over HTTP by the CLI.

# Catalog

Plot engine:

  - farmer_pieces_plotted_total (counter)
  - farmer_plot_write_duration_seconds (histogram)
  - farmer_plot_read_duration_seconds (histogram)
  - farmer_plot_find_by_range_duration_seconds (histogram)
  - farmer_commitments_created_total (counter)
  - farmer_commitment_create_duration_seconds (histogram, wide buckets —
    a commitment scan can legitimately take minutes on a large plot)

Farming loop:

  - farmer_slots_processed_total (counter)
  - farmer_solutions_found_total (counter)
  - farmer_rpc_errors_total{method} (counter)

# Timer

Timer is a small helper: NewTimer() starts a clock, and
ObserveDuration/ObserveDurationVec records the elapsed time into a
histogram at the call site, avoiding repeated time.Since boilerplate.
*/
package metrics
