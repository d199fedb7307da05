// Package registry loads bin documents from the storage root into memory and
// writes changed bins back.
//
// A bin document is named "<bin>-ids.json", "<bin>-ids.yaml" or
// "<bin>-ids.yml" and holds either a bare list of item ids or an object with
// group, focus and ids (plus any other fields, which survive a rewrite in
// their original order). Documents marked "status: complete" or
// "read_only: true", and bins listed as closed in configuration, are loaded
// but never modified.
//
// The Registry is the only component that touches bin storage. Placement
// operates on it in memory through Create and Assign; Write then persists the
// changed bins with ids in numeric-suffix order, refusing to overwrite a
// document that was edited on disk after it was loaded.
package registry
