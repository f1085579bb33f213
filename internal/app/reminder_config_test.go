package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(validRawConfig())
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Message:   "Use %s before it expires!",
		Subject:   "Discount expiring",
		FromEmail: "shop@example.com",
		FromName:  "Example Shop",
	}, cfg)
}

func TestParseConfig_ErrorNamesKey(t *testing.T) {
	raw := validRawConfig()
	raw["from_email"] = 3.14

	_, err := ParseConfig(raw)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `"from_email"`)
	assert.Contains(t, err.Error(), "float64")
}

func TestParseConfig_IgnoresExtraKeys(t *testing.T) {
	raw := validRawConfig()
	raw["reply_to"] = "help@example.com"

	_, err := ParseConfig(raw)
	assert.NoError(t, err)
}

func TestConfig_RenderMessage(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"Code %s expires soon", "Code SAVE10 expires soon"},
		{"%s", "SAVE10"},
		{"No placeholder here", "No placeholder here"},
		{"Use %s now, %s later", "Use SAVE10 now, %s later"},
		{"50% off with %s", "50% off with SAVE10"},
		{"100%% off with %s", "100% off with SAVE10"},
		{"%%s is literal, %s is the code", "%s is literal, SAVE10 is the code"},
		{"ends in %", "ends in %"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			c := &Config{Message: tt.template}
			assert.Equal(t, tt.want, c.RenderMessage("SAVE10"))
		})
	}
}

func TestFileConfigProvider(t *testing.T) {
	dir := t.TempDir()

	t.Run("replaces input", func(t *testing.T) {
		path := filepath.Join(dir, "reminder.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"message": "Hurry, %s ends tomorrow",
			"subject": "Reminder",
			"from_email": "file@example.com",
			"from_name": "File Shop"
		}`), 0o600))

		out := FileConfigProvider(path, testLogger())(validRawConfig())
		cfg, err := ParseConfig(out)
		require.NoError(t, err)
		assert.Equal(t, "file@example.com", cfg.FromEmail)
		assert.Equal(t, "Hurry, X ends tomorrow", cfg.RenderMessage("X"))
	})

	t.Run("non-string value is rejected downstream", func(t *testing.T) {
		path := filepath.Join(dir, "numeric.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"message":"%s","subject":1,"from_email":"a@b.co","from_name":"n"}`), 0o600))

		_, err := ParseConfig(FileConfigProvider(path, testLogger())(nil))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		out := FileConfigProvider(filepath.Join(dir, "absent.json"), testLogger())(validRawConfig())
		assert.Nil(t, out)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o600))

		assert.Nil(t, FileConfigProvider(path, testLogger())(validRawConfig()))
	})
}

func TestMergeConfigProvider(t *testing.T) {
	in := RawConfig{"subject": "old", "message": "%s"}
	out := MergeConfigProvider(RawConfig{"subject": "new", "from_name": "Shop"})(in)

	assert.Equal(t, RawConfig{"subject": "new", "message": "%s", "from_name": "Shop"}, out)
	assert.Equal(t, "old", in["subject"], "input must not be mutated")
}
