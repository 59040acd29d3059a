package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"eduvisor-backend/utils"
)

// Generates a fresh API key and the bcrypt hash to configure for it.
// The raw key goes to the frontend deployment; only the hash is stored
// in API_KEY_HASHES.
func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost for the stored hash")
	flag.Parse()

	key, err := utils.GenerateAPIKey()
	if err != nil {
		log.Fatal("Failed to generate API key:", err)
	}

	hash, err := utils.HashAPIKey(key, *cost)
	if err != nil {
		log.Fatal("Failed to hash API key:", err)
	}

	fmt.Println("API key (distribute to the client, shown once):")
	fmt.Println("  " + key)
	fmt.Println("Append to API_KEY_HASHES:")
	fmt.Println("  " + hash)
}
