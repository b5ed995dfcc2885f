package config

import "github.com/joho/godotenv"

// LoadDotEnv reads .env files into the environment.
// Existing env vars are not overridden, so the process environment wins.
// A missing file is returned as an error the caller may ignore.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
