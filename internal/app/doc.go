// Package app defines the handle through which maintenance tasks reach the
// external application, and a console implementation that invokes the
// application's command-line kernel (for example "php artisan").
//
// Environment overrides are configuration of the handle: they are resolved
// when the handle is constructed and applied only to the child processes it
// starts. Nothing in this package mutates the environment of the current
// process.
package app
