// Package detection turns raw classifier output into canonical bill
// detections and narrows them down to the single candidate a confirmation
// round acts on.
//
// Normalize is total: any decoded JSON record maps to a Detection without
// error, so malformed inference payloads degrade to low-confidence "unknown"
// entries that the Filter then discards. Filter and Best are pure and keep
// input order, which the Selector relies on for first-seen tie-breaking.
package detection
