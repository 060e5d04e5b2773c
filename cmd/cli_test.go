package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", stdout)
}

func TestPersonasJSONListsDefaultRoster(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "personas", "--json")
	require.NoError(t, err)

	var personas []personaOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &personas))
	require.Len(t, personas, 4)

	assert.Equal(t, "group", personas[0].ID)
	assert.True(t, personas[0].Group)
	assert.Equal(t, []string{"榆木华", "Snaur", "FFFanwen"}, personas[0].Members)
	assert.Nil(t, personas[0].Talkativeness)
	assert.Equal(t, 1, personas[1].Messages)
	require.NotNil(t, personas[1].Talkativeness)
	assert.Equal(t, domain.DefaultAttributeValue, *personas[1].Talkativeness)
}

func TestPersonasRendersRoster(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "personas")
	require.NoError(t, err)
	assert.Contains(t, stdout, "personas: 4")
	assert.Contains(t, stdout, "榆木华")
	assert.Contains(t, stdout, "FFFanwen")
}

func TestPersonasInitWritesRosterAndProfiles(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "personas", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote roster")
	assert.Contains(t, stdout, "wrote profile for 1")

	configDir := filepath.Join(home, ".config", "chatsim")
	assert.FileExists(t, filepath.Join(configDir, "roster.toml"))
	profile, err := os.ReadFile(filepath.Join(configDir, "prompts", "2.md"))
	require.NoError(t, err)
	assert.Contains(t, string(profile), "# Snaur")
	assert.Contains(t, string(profile), "活跃度 (talkativeness)：0.5")

	_, _, err = executeCLI(t, home, "personas", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(filepath.Join(configDir, "prompts", "2.md"), []byte("活跃度 (talkativeness)：0.9\n"), 0o644))
	stdout, _, err = executeCLI(t, home, "personas", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote profile for 2")
}

func TestPersonasReadsProfileAttributes(t *testing.T) {
	home := t.TempDir()
	promptsDir := filepath.Join(home, ".config", "chatsim", "prompts")
	require.NoError(t, os.MkdirAll(promptsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(promptsDir, "1.md"), []byte("活跃度 (talkativeness)：0.8\n回复率 (reply_rate)：0.9\n"), 0o644))

	stdout, _, err := executeCLI(t, home, "personas", "--json")
	require.NoError(t, err)

	var personas []personaOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &personas))
	require.Len(t, personas, 4)
	require.NotNil(t, personas[1].Talkativeness)
	assert.InDelta(t, 0.8, *personas[1].Talkativeness, 1e-9)
	assert.InDelta(t, 0.9, *personas[1].ReplyRate, 1e-9)
}

func TestSayToPersonaPrintsReply(t *testing.T) {
	server := newFakeOllama(t, "你好呀")
	t.Setenv("CHATSIM_GENERATION_BASE_URL", server.URL)

	stdout, _, err := executeCLI(t, t.TempDir(), "say", "--to", "1", "--quiet", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, stdout, "榆木华 (1)")
	assert.Contains(t, stdout, "我是榆木华")
	assert.Contains(t, stdout, "hello there")
	assert.Contains(t, stdout, "你好呀")
	assert.Contains(t, stdout, "messages: 3")
}

func TestSayToGroupDeliversEveryReply(t *testing.T) {
	server := newFakeOllama(t, "榆木华: 周末去爬山吧\nSnaur: 我不去")
	t.Setenv("CHATSIM_GENERATION_BASE_URL", server.URL)
	t.Setenv("CHATSIM_PACING_MIN", "1ms")
	t.Setenv("CHATSIM_PACING_MAX", "2ms")

	stdout, _, err := executeCLI(t, t.TempDir(), "say", "--to", "group", "--quiet", "--seed", "7", "讨论周末计划")
	require.NoError(t, err)
	assert.Contains(t, stdout, "讨论周末计划")
	assert.Contains(t, stdout, "周末去爬山吧")
	assert.Contains(t, stdout, "我不去")
	assert.Contains(t, stdout, "messages: 3")
}

func TestSayShowsWaitingSpinner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = fmt.Fprint(w, `{"response":"嗯"}`+"\n"+`{"done":true}`+"\n")
	}))
	defer server.Close()
	t.Setenv("CHATSIM_GENERATION_BASE_URL", server.URL)

	_, stderr, err := executeCLI(t, t.TempDir(), "say", "--to", "2", "在吗")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Waiting for Snaur")
}

func TestSayPrintsFallbackWhenGenerationFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()
	t.Setenv("CHATSIM_GENERATION_BASE_URL", server.URL)

	stdout, _, err := executeCLI(t, t.TempDir(), "say", "--to", "3", "--quiet", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, domain.FallbackReply)
	assert.Contains(t, stdout, "messages: 2")
}

func TestSayRejectsUnknownPersona(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "say", "--to", "42", "--quiet", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestSayRequiresTarget(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "say", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"to\" not set")
}

func TestRunSendsInputLinesAndDrains(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `{"response":"收到"}`+"\n"+`{"done":true}`+"\n")
	}))
	defer server.Close()
	t.Setenv("CHATSIM_GENERATION_BASE_URL", server.URL)

	stdout, stderr, err := executeCLIWithInput(t, t.TempDir(), "第一句\n\n/to 9\n/to 2\n第二句\n/quit\nignored\n",
		"run", "--conversation", "1", "--no-auto",
	)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, stdout, "榆木华 (1)")
	assert.Contains(t, stdout, "Snaur (2)")
	assert.Contains(t, stdout, "[榆木华]")
	assert.Contains(t, stdout, "第一句")
	assert.Contains(t, stdout, "[Snaur]")
	assert.Contains(t, stdout, "第二句")
	assert.Equal(t, 2, strings.Count(stdout, "收到"))
	assert.NotContains(t, stdout, "ignored")
	assert.Contains(t, stderr, "persona not found")
}

func TestRunRejectsUnknownConversation(t *testing.T) {
	_, _, err := executeCLIWithInput(t, t.TempDir(), "", "run", "--conversation", "nope", "--no-auto")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	home := t.TempDir()
	_, _, err := executeCLI(t, home, "--config", filepath.Join(home, "missing.toml"), "personas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestConfigFileSelectsYAMLRoster(t *testing.T) {
	home := t.TempDir()
	rosterPath := filepath.Join(home, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(`version: 1
personas:
  - id: duo
    name: 双人组
    participants: ["a", "b"]
  - id: a
    name: Alice
  - id: b
    name: Bob
`), 0o644))
	configPath := filepath.Join(home, "chatsim.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf("[roster]\npath = %q\n", rosterPath)), 0o644))

	stdout, _, err := executeCLI(t, home, "--config", configPath, "personas", "--json")
	require.NoError(t, err)

	var personas []personaOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &personas))
	require.Len(t, personas, 3)
	assert.Equal(t, []string{"Alice", "Bob"}, personas[0].Members)
}

func TestInvalidLogLevelFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "--log-level", "chatty", "personas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home string, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("CHATSIM_LOG_LEVEL", "error")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// newFakeOllama streams text back as two /api/generate records.
func newFakeOllama(t *testing.T, text string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)

		w.Header().Set("Content-Type", "application/x-ndjson")
		half := len([]rune(text)) / 2
		for _, part := range []string{string([]rune(text)[:half]), string([]rune(text)[half:])} {
			record, _ := json.Marshal(map[string]any{"response": part, "done": false})
			_, _ = w.Write(append(record, '\n'))
		}
		_, _ = w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	t.Cleanup(server.Close)

	return server
}
