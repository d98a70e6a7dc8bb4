//go:build tools

// Pins mockgen in go.mod for the go:generate directives.
package chat_relay

import _ "go.uber.org/mock/mockgen"
