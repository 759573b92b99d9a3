// Command tiendactl runs maintenance tasks against the shop's database and
// upload directory.
package main

import (
	"os"

	"tienda-be/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
