// Package catalog loads episode batch seeds produced by external catalog
// scrapers. A seed names a series and its episodes with one or more mirror
// URLs each; the workflow turns every episode into a queue item. Missing
// fields are tolerated -- the catalog side is a best-effort producer.
package catalog
