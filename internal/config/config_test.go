// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withHome points the config directory at a temp dir and clears overrides.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"REASONCHAT_OLLAMA_URL", "REASONCHAT_MODEL", "REASONCHAT_THEME", "REASONCHAT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultOllamaURL, cfg.API.OllamaURL)
	assert.Equal(t, 10, cfg.GUI.FontSize)
	assert.Equal(t, "\nAssistant:", cfg.Prompt.TurnSuffix)
	assert.Equal(t, 60*time.Second, cfg.TimeoutDuration())
	assert.Contains(t, cfg.Prompt.System, "<thinking>")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	home := withHome(t)

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".reasonchat", "config.toml"), path)
	assert.Equal(t, Default().API, cfg.API)
}

func TestLoad_TOML(t *testing.T) {
	home := withHome(t)
	writeFile(t, filepath.Join(home, ".reasonchat", "config.toml"), `
[api]
ollama_url = "http://gpu-box:11434/api/generate"
model = "llama3"

[gui]
theme = "light"
font_size = 14

[stream]
boundary_policy = "buffered"
`)

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434/api/generate", cfg.API.OllamaURL)
	assert.Equal(t, "llama3", cfg.API.Model)
	assert.Equal(t, DefaultTimeout, cfg.API.Timeout)
	assert.Equal(t, ThemeLight, cfg.GUI.Theme)
	assert.Equal(t, 14, cfg.GUI.FontSize)
	assert.Equal(t, PolicyBuffered, cfg.Stream.BoundaryPolicy)
	assert.Equal(t, DefaultSystemPrompt, cfg.Prompt.System)
}

func TestLoad_JSONAndYAMLFallbacks(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		home := withHome(t)
		writeFile(t, filepath.Join(home, ".reasonchat", "config.json"), `{"api":{"model":"phi3"}}`)
		cfg, path, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "phi3", cfg.API.Model)
		assert.Equal(t, ".json", filepath.Ext(path))
	})
	t.Run("yaml", func(t *testing.T) {
		home := withHome(t)
		writeFile(t, filepath.Join(home, ".reasonchat", "config.yaml"), "gui:\n  theme: light\n")
		cfg, path, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ThemeLight, cfg.GUI.Theme)
		assert.Equal(t, ".yaml", filepath.Ext(path))
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	withHome(t)
	t.Setenv("REASONCHAT_OLLAMA_URL", "http://other:1234/api/generate")
	t.Setenv("REASONCHAT_MODEL", "mistral")
	t.Setenv("REASONCHAT_THEME", "LIGHT")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://other:1234/api/generate", cfg.API.OllamaURL)
	assert.Equal(t, "mistral", cfg.API.Model)
	assert.Equal(t, ThemeLight, cfg.GUI.Theme)
}

func TestLoad_FontSizeClamped(t *testing.T) {
	home := withHome(t)
	writeFile(t, filepath.Join(home, ".reasonchat", "config.toml"), "[gui]\nfont_size = 42\n")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxFontSize, cfg.GUI.FontSize)
}

func TestLoad_InvalidConfig(t *testing.T) {
	home := withHome(t)
	writeFile(t, filepath.Join(home, ".reasonchat", "config.toml"), `
[api]
ollama_url = "localhost"
[gui]
theme = "neon"
`)

	_, _, err := Load()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["api.ollama_url"])
	assert.True(t, fields["gui.theme"])
}

func TestLoad_MalformedTOML(t *testing.T) {
	home := withHome(t)
	writeFile(t, filepath.Join(home, ".reasonchat", "config.toml"), "[api\nmodel=")

	_, _, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOML")
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"timeout zero", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"font too small", func(c *Config) { c.GUI.FontSize = 7 }, "gui.font_size"},
		{"policy", func(c *Config) { c.Stream.BoundaryPolicy = "lines" }, "stream.boundary_policy"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"empty model", func(c *Config) { c.API.Model = " " }, "api.model"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			withHome(t)
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.ToggleTheme()
			cfg.AdjustFontSize(3)
			require.NoError(t, Save(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestEncode_YAMLKeepsSurroundingWhitespace(t *testing.T) {
	withHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Prompt.TurnSuffix = "\nAssistant: "
	cfg.Prompt.System = "  indented persona\nsecond line\n"

	data, err := Encode(cfg, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `turn_suffix: "\nAssistant: "`)

	require.NoError(t, Save(cfg, path))
	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "\nAssistant: ", loaded.Prompt.TurnSuffix)
	assert.Equal(t, "  indented persona\nsecond line\n", loaded.Prompt.System)
}

func TestGenerateOptions(t *testing.T) {
	withHome(t)
	cfg := Default()
	assert.True(t, cfg.Generate.IsZero())

	require.NoError(t, cfg.Set("generate.temperature", "0.7"))
	require.NoError(t, cfg.Set("generate.top_p", "0.9"))
	require.NoError(t, cfg.Set("generate.seed", "42"))
	require.NoError(t, cfg.Set("generate.stop", " </implementing> ,,Human:"))
	assert.Equal(t, GenerateConfig{Temperature: 0.7, TopP: 0.9, Seed: 42, Stop: []string{"</implementing>", "Human:"}}, cfg.Generate)
	require.NoError(t, cfg.Validate())

	clone := cfg.Clone()
	clone.Generate.Stop[0] = "changed"
	assert.Equal(t, "</implementing>", cfg.Generate.Stop[0])

	for _, name := range []string{"config.toml", "config.json", "config.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, Save(cfg, path))
		loaded, err := LoadFromPath(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg.Generate, loaded.Generate, name)
	}

	assert.Error(t, cfg.Set("generate.temperature", "warm"))
	cfg.Generate.TopP = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate.top_p")
}

func TestToggleThemeAndFontSize(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ThemeLight, cfg.ToggleTheme())
	assert.Equal(t, ThemeDark, cfg.ToggleTheme())

	assert.Equal(t, 11, cfg.AdjustFontSize(1))
	assert.Equal(t, MaxFontSize, cfg.AdjustFontSize(100))
	assert.Equal(t, MinFontSize, cfg.AdjustFontSize(-100))
}

func TestGetSet_DotNotation(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("gui.font_size", "16"))
	require.NoError(t, cfg.Set("api.ollama_url", "http://h:1/api/generate"))
	require.NoError(t, cfg.Set("storage.disabled", "true"))
	require.NoError(t, cfg.Set("api.timeout", 30))

	v, err := cfg.Get("gui.font_size")
	require.NoError(t, err)
	assert.Equal(t, 16, v)
	assert.Equal(t, "http://h:1/api/generate", cfg.API.OllamaURL)
	assert.True(t, cfg.Storage.Disabled)
	assert.Equal(t, 30, cfg.API.Timeout)

	_, err = cfg.Get("gui.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("gui.font_size", "big"))
	assert.Error(t, cfg.Set("gui.theme.x", "y"))
	assert.Error(t, cfg.Set("", "y"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "api.ollama_url")
	assert.Contains(t, keys, "gui.font_size")
	assert.Contains(t, keys, "stream.boundary_policy")
	for _, k := range keys {
		_, err := Default().Get(k)
		assert.NoError(t, err, k)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	withHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(context.Background()))
	defer w.Close()

	cfg := Default()
	cfg.ToggleTheme()
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-changes:
		assert.Equal(t, ThemeLight, got.GUI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatcher_SkipsInvalidFile(t *testing.T) {
	withHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(context.Background()))

	writeFile(t, path, "[gui]\ntheme = \"neon\"\n")

	select {
	case <-changes:
		t.Fatal("invalid config should not be delivered")
	case <-time.After(400 * time.Millisecond):
	}
	require.NoError(t, w.Close())
}
