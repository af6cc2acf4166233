package env

import (
	"os"

	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok && val != "" {
		return val
	}
	// Fallback to OS environment variables (containers, CI)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env file found. A missing file is not an
// error: deployments usually inject plain environment variables.
func SetupEnvFile() bool {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/tubtip to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		loaded, err := godotenv.Read(envFile)
		if err == nil {
			Env = loaded
			return true
		}
	}

	Env = map[string]string{}
	return false
}
