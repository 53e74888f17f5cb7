// Package status tracks the batch currently being processed.
//
// A single Coordinator owns the mutable Record; everything else sees
// copies taken under the lock. Start enforces the one-active-batch rule
// and Finish returns the record to idle no matter how the batch ended.
package status
