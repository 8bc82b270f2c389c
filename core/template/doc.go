// Package template implements the template-page interpreter: it reads a
// file mapped from the request's URI, scans it for "<@=NAME>" escape
// sequences, and streams the surrounding static bytes and each escape's
// chained handler output into a single response. FileSource abstracts the
// document root a deployment serves template pages from — local disk or
// an S3 bucket.
package template
