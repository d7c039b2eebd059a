// Package quota implements the daily usage ledger that gates pipeline runs.
//
// Consumption is counted per calendar day in a fixed timezone and per
// client address. The Ledger serializes the limit check and the increment,
// and every Store performs a compare-and-increment so a refused call never
// mutates state. Day keys older than the retention window are pruned on each
// successful write. Three stores are provided: SQLite (default), a JSON file
// compatible with the historical usage_data.json layout, and memory.
package quota
