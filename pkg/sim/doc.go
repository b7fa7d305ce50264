/*
Package sim reimplements the farmer's difficulty simulator: it drives a
plotted plot through a synthetic stream of chained challenges instead
of a live consensus subscription, tracking how often a solution would
have been found and re-deriving the solution range at each era
boundary the same way the consensus node's difficulty adjustment would.

It exists to let an operator estimate solution rates for a given plot
size without connecting to a network.
*/
package sim
