package config

import "os"

// DBConfig holds MySQL connection settings for the listing history store.
// The store is optional: Enabled reports whether DB_HOST and DB_NAME are set.
type DBConfig struct {
    User string
    Pass string
    Host string
    Port string
    Name string
}

// LoadDBConfig reads DB_* variables.  DB_PASS may be empty.
func LoadDBConfig() DBConfig {
    return DBConfig{
        User: getenv("DB_USER", "root"),
        Pass: os.Getenv("DB_PASS"),
        Host: os.Getenv("DB_HOST"),
        Port: getenv("DB_PORT", "3306"),
        Name: os.Getenv("DB_NAME"),
    }
}

// Enabled reports whether enough settings are present to open a connection.
func (c DBConfig) Enabled() bool {
    return c.Host != "" && c.Name != ""
}
