package utils

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_NAME", "APP_VERSION", "REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET",
	"REDDIT_USER_AGENT", "REDDIT_COMMENT_LIMIT", "REDDIT_MAX_REQUESTS_PER_MINUTE",
	"DATABASE_PATH", "SERVER_PORT", "CORS_ALLOW_ORIGINS", "SERVER_REQUESTS_PER_MINUTE",
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// clearConfigEnv unsets every config key for the duration of the test
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_VAR", "test-value")

	value := getEnv("TEST_ENV_VAR", "default-value")
	assert.Equal(t, "test-value", value)

	value = getEnv("NON_EXISTENT_VAR", "default-value")
	assert.Equal(t, "default-value", value)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	t.Setenv("TEST_PADDED_INT_VAR", " 7 ")
	t.Setenv("TEST_INVALID_INT_VAR", "not-an-int")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT_VAR", 10))
	assert.Equal(t, 7, getEnvAsInt("TEST_PADDED_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("TEST_INVALID_INT_VAR", 10))
	assert.Equal(t, 10, getEnvAsInt("NON_EXISTENT_VAR", 10))
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "Thread Analyzer", config.App.Name)
	assert.Equal(t, "RedditAnalyzer/1.0", config.Reddit.UserAgent)
	assert.Equal(t, 500, config.Reddit.CommentLimit)
	assert.Equal(t, 100, config.Reddit.MaxRequestsPerMinute)
	assert.Empty(t, config.Reddit.ClientID)
	assert.Equal(t, "./reddit.db", config.Database.Path)
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, []string{"*"}, config.Server.AllowOrigins)
	assert.Equal(t, 120, config.Server.RequestsPerMinute)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	contents := "REDDIT_USER_AGENT=linux:thread-analyzer:v1 (by /u/tester)\n" +
		"REDDIT_COMMENT_LIMIT=200\n" +
		"SERVER_PORT=8081\n" +
		"CORS_ALLOW_ORIGINS=http://localhost:5173, https://example.com\n" +
		"DATABASE_PATH=" + filepath.Join(dir, "data", "reddit.db") + "\n"
	require.NoError(t, os.WriteFile(envPath, []byte(contents), 0600))

	config, err := LoadConfig(envPath, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "linux:thread-analyzer:v1 (by /u/tester)", config.Reddit.UserAgent)
	assert.Equal(t, 200, config.Reddit.CommentLimit)
	assert.Equal(t, 8081, config.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "https://example.com"}, config.Server.AllowOrigins)

	// the nested database directory is created during validation
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Reddit: RedditConfig{
				UserAgent:            "agent",
				CommentLimit:         500,
				MaxRequestsPerMinute: 100,
			},
			Database: DatabaseConfig{Path: ":memory:"},
			Server:   ServerConfig{Port: 3000, AllowOrigins: []string{"*"}},
		}
	}

	assert.NoError(t, validateConfig(valid()))

	withOAuth := valid()
	withOAuth.Reddit.ClientID = "id"
	withOAuth.Reddit.ClientSecret = "secret"
	assert.NoError(t, validateConfig(withOAuth))

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Client id without secret", mutate: func(c *Config) { c.Reddit.ClientID = "id" }, wantErr: "REDDIT_CLIENT_SECRET"},
		{name: "Secret without client id", mutate: func(c *Config) { c.Reddit.ClientSecret = "secret" }, wantErr: "REDDIT_CLIENT_ID"},
		{name: "Blank user agent", mutate: func(c *Config) { c.Reddit.UserAgent = "  " }, wantErr: "REDDIT_USER_AGENT"},
		{name: "Zero comment limit", mutate: func(c *Config) { c.Reddit.CommentLimit = 0 }, wantErr: "REDDIT_COMMENT_LIMIT"},
		{name: "Negative request budget", mutate: func(c *Config) { c.Reddit.MaxRequestsPerMinute = -1 }, wantErr: "REDDIT_MAX_REQUESTS_PER_MINUTE"},
		{name: "Port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "SERVER_PORT"},
		{name: "No origins", mutate: func(c *Config) { c.Server.AllowOrigins = nil }, wantErr: "CORS_ALLOW_ORIGINS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := valid()
			tc.mutate(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single item",
			input:    "*",
			expected: []string{"*"},
		},
		{
			name:     "Multiple items",
			input:    "http://a.test,http://b.test",
			expected: []string{"http://a.test", "http://b.test"},
		},
		{
			name:     "Items with whitespace",
			input:    " http://a.test ,\thttp://b.test\n",
			expected: []string{"http://a.test", "http://b.test"},
		},
		{
			name:     "Extra commas",
			input:    ",http://a.test,,http://b.test,",
			expected: []string{"http://a.test", "http://b.test"},
		},
		{
			name:     "Empty",
			input:    "",
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("parseList(%q) = %v; want %v", tc.input, result, tc.expected)
			}
		})
	}
}
