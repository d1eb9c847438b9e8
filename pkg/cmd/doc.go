// Package cmd implements the mailguard command tree: the serve command that
// runs the dispatch service, and client commands that validate recipients,
// send mail and inspect quota, either in-process or against a running server.
package cmd
