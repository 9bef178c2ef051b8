package config

import "github.com/joho/godotenv"

// LoadEnv loads variables from a .env file in the working directory.
// Variables already present in the environment are left alone. Callers can
// check os.IsNotExist on the error to tolerate a missing file.
func LoadEnv() error {
	return godotenv.Load()
}
