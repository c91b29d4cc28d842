package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `kwenda-dispatch — booking dispatch and lifecycle core

Usage:
  dispatch [-config-path config.yaml]

Configuration is read from the YAML file and/or environment variables
(DATABASE_*, RABBITMQ_*, REDIS_*, KAFKA_*, DISPATCH_*, LOCATION_*,
PRICING_*, AUTH_*, HTTP_*, LOG_LEVEL).
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
