// Command hashkey generates a consumer API key and prints the TOML entry to
// add to the file named by CONFIG_FILE.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BurntSushi/toml"

	config "github.com/avatarctic/land-registry-gateway/configs"
	"github.com/avatarctic/land-registry-gateway/internal/utils"
)

type consumerEntry struct {
	Consumer struct {
		Keys []config.APIKey `toml:"keys"`
	} `toml:"consumer"`
}

func main() {
	name := flag.String("name", "", "consumer name")
	rpm := flag.Int("rpm", 0, "requests per minute for this consumer (0 uses the default)")
	key := flag.String("key", "", "existing key to hash instead of generating one")
	flag.Parse()

	if *name == "" {
		log.Fatal("-name is required")
	}

	apiKey := *key
	if apiKey == "" {
		generated, err := utils.GenerateAPIKey()
		if err != nil {
			log.Fatal(err)
		}
		apiKey = generated
	}
	hash, err := utils.HashAPIKey(apiKey)
	if err != nil {
		log.Fatal(err)
	}

	var entry consumerEntry
	entry.Consumer.Keys = []config.APIKey{{Name: *name, Hash: hash, RequestsPerMinute: *rpm}}

	fmt.Fprintf(os.Stderr, "API key for %s (shown once): %s\n\n", *name, apiKey)
	if err := toml.NewEncoder(os.Stdout).Encode(entry); err != nil {
		log.Fatal(err)
	}
}
