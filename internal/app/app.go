package app

import (
	"log"
	"net/http"

	"github.com/you/scamwatch/internal/config"
)

// Run assembles the container and serves the router until the listener
// fails.
func Run(cfg *config.Config) error {
	c, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, c.Router)
}
