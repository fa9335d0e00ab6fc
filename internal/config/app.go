package config

import "os"

// Development is true when DEVELOPMENT is set to anything but "0".
func Development() bool {
	development, ok := os.LookupEnv("DEVELOPMENT")
	return ok && development != "0"
}

func BasePath() string {
	return os.Getenv("APP_BASE_PATH")
}

func Port() string {
	port, ok := os.LookupEnv("APP_PORT")
	if !ok {
		return ":8080"
	}
	return port
}

// LogFile is where the CLI mirrors its logs; empty disables the file.
func LogFile() string {
	return os.Getenv("LOG_FILE")
}
