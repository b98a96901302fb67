// Package diag defines the diagnostic model shared by the front end and the
// semantic passes.
//
// Producers emit through a Reporter (usually via ReportError/ReportWarning and
// the ReportBuilder chain) so they stay decoupled from storage. BagReporter
// collects into a Bag, which supports sorting and deduplication before
// rendering with Pretty.
//
// A Diagnostic carries a severity, a stable numeric Code, a short message, the
// primary span and optional notes. Notes should add context ("previous
// declaration here") rather than repeat the message.
package diag
