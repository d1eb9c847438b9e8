// Package mail delivers outbound email through the reliability pipeline:
// recipient validation, quota enforcement and retried SMTP sending. Dispatcher
// runs the pipeline synchronously and Queue runs it in the background,
// deferring quota-denied messages until their window resets.
package mail
