// Package security inspects the TLS certificate of the pspwatch-server
// endpoint the agent ships to, so an expired or soon-to-expire certificate
// shows up in the agent log before it breaks delivery.
package security
