// Package model defines the data structures shared by the contactscan
// packages: business records, crawl targets, fetch results and email
// candidates.
//
// The types live in their own package because fetch, extract, crawler,
// dedup, pipeline and export all exchange them. Records serialize to JSON
// for export and database storage.
package model
