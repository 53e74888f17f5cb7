// Package extract implements the first workflow stage: resolving an
// episode's mirror list into a ranked download plan.
//
// Each mirror is inspected without downloading. Supported hosts contribute a
// language- and quality-classified variant; hosts the inspector has no
// extractor for are demoted to direct-fetch candidates at the end of the
// plan. Variants are ranked against the configured language priority list
// and the result is persisted on the queue item for the transfer stage.
package extract
