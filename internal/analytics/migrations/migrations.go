// Package migrations embeds the analytics store schema migrations so they
// compile into the host binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
