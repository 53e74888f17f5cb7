// Package fetchplan defines the resolved download plan an episode carries
// between workflow stages.
//
// The extract stage enumerates and ranks download sources for an episode and
// persists them as an Envelope on the queue item; the transfer stage walks
// the candidates best-first and the organizer reads the winning candidate's
// language labels when naming the final file. The envelope is stored as JSON
// in the queue's plan column, so additions here must stay
// backward-compatible with rows written by earlier builds.
package fetchplan
