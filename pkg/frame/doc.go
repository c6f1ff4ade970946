// Package frame holds the tabular model used for signal, reference-table,
// pivot-table and P# data, and the reshaping between its three forms:
//
//   - long form, with a dedicated Entity column;
//   - wide form, with columns labelled "<entity> : <column>";
//   - pivoted analysis form, one row per entity and Date/Depth key and one
//     column per result labelled "<name> [<unit>]".
//
// A cell holds float64, string, bool, time.Time or nil for a missing value.
package frame
