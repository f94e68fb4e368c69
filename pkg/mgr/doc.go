// Package mgr administers services through the Service Control Manager:
// connecting, creating, opening, configuring, controlling and deleting.
//
// Every Manager and Service owns one SCM handle and must be closed.
// Closing a Service never deletes it.
package mgr
