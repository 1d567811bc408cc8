// Package batch runs one mailbox operation over many message IDs and
// reports per-item outcomes.
//
// Tools whose arguments accept either a single ID or an array of IDs parse
// them with ParseStringOrArray, run the operation with ProcessBatch and
// render the aggregate with FormatResults, so one failing message never
// hides the items that succeeded.
package batch
