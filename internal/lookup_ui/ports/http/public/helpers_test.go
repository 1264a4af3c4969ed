package public

import (
	"github.com/langowen/feelookup/deploy/config"
	"time"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPServer: config.HTTPServer{
			Port:        "0",
			Timeout:     time.Second,
			IdleTimeout: time.Second,
		},
	}
}
