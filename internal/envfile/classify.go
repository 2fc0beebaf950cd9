package envfile

import "strings"

var secretPatterns = []string{
	"secret", "key", "token", "password", "pass", "pwd",
	"auth", "credential", "cred", "private",
	"api_key", "apikey", "access_key", "secret_key",
	"bearer", "jwt", "session", "salt", "signature",
}

var databasePatterns = []string{
	"database_url", "db_url", "dsn", "connection_string",
	"postgres_url", "mysql_url", "mongodb_url", "redis_url",
}

// Sensitive reports whether an environment variable looks like credential
// material: secret-ish names, database connection names, or URLs that embed
// credentials.
func Sensitive(name, value string) bool {
	nameLower := strings.ToLower(name)

	for _, pattern := range databasePatterns {
		if strings.Contains(nameLower, pattern) {
			return true
		}
	}

	for _, pattern := range secretPatterns {
		if strings.Contains(nameLower, pattern) {
			return true
		}
	}

	// Connection URLs carrying inline credentials
	if len(value) > 20 && strings.Contains(value, "://") && strings.Contains(value, "@") {
		return true
	}

	return false
}

// Mask replaces a sensitive value with a fixed-width placeholder for display.
func Mask(value string) string {
	if len(value) <= 2 {
		return "****"
	}
	return value[:1] + "****" + value[len(value)-1:]
}
