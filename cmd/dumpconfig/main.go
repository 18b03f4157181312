// Command dumpconfig prints the resolved configuration as JSON so operators
// can check what defaults, file values and environment overrides produced.
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/nusacloud/billing-api/internal/config"
)

func main() {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Never print credentials.
	cfg.Auth.JWTSecret = "<redacted>"
	cfg.Database.URL = "<redacted>"
	cfg.Redis.URL = "<redacted>"

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		log.Fatalf("encode config: %v", err)
	}
}
