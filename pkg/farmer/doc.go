/*
Package farmer runs the per-slot proof-of-space loop: it subscribes to
a consensus node's slot notifications, reconciles the plot's current
and next salt commitments against each notification, derives a local
challenge, queries the plot for a candidate piece, and replies with a
signed solution (or none).

Farmer owns its currentSalt/nextSalt state exclusively from the single
goroutine driving Run — no locking is needed because nothing else
mutates it. Background (re)commitment work spawned by the
reconciliation step operates only on copied salt values, never on the
Farmer's own fields, so it can run concurrently with the next
notification's reconciliation without synchronization.
*/
package farmer
