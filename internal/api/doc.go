// Package api handles incoming HTTP requests for study content. It decodes
// and validates request bodies, calls the artifact service and maps its
// errors onto status codes and safe messages.
package api
