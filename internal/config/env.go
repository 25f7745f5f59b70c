package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; variables already set in the environment win.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() error {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}
