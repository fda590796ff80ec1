package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// lockedBuffer lets the test poll output written by the server goroutine.
type lockedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (buffer *lockedBuffer) Write(data []byte) (int, error) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.Write(data)
}

func (buffer *lockedBuffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return buffer.buffer.String()
}

func waitForBridgeAddress(t *testing.T, buffer *lockedBuffer) string {
	t.Helper()
	const prefix = "Bridge listening on "
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, line := range strings.Split(buffer.String(), "\n") {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix))
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("bridge address not reported: %s", buffer.String())
	return ""
}

func TestBridgeExecutorsDriveWorkspace(t *testing.T) {
	fixture := newCLIFixture(t)
	app := &application{
		dependencies: dependencies{logger: zap.NewNop(), copier: fixture.copier, now: fixedNow},
		options:      globalOptions{root: fixture.root, stateDirectory: fixture.stateDirectory},
	}
	activeSession, openError := app.openSession(&bytes.Buffer{})
	if openError != nil {
		t.Fatalf("open session: %v", openError)
	}
	defer activeSession.close()

	ctx, cancel := context.WithCancel(context.Background())
	var buffer lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- startBridgeServer(ctx, activeSession, app, "127.0.0.1:0", &buffer)
	}()
	address := waitForBridgeAddress(t, &buffer)
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("bridge shutdown error: %v", err)
		}
	}()

	client := http.Client{Timeout: 2 * time.Second}
	post := func(command string, body string) (int, map[string]interface{}) {
		t.Helper()
		response, err := client.Post("http://"+address+"/commands/"+command, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post %s: %v", command, err)
		}
		defer response.Body.Close()
		decoded := map[string]interface{}{}
		if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode %s response: %v", command, err)
		}
		return response.StatusCode, decoded
	}

	testSteps := []struct {
		name           string
		command        string
		body           string
		expectedStatus int
		expectedOutput string
	}{
		{name: "generate_empty", command: bridgeCommandGenerate, expectedStatus: http.StatusConflict},
		{name: "add", command: bridgeCommandAdd, body: `{"paths":["a.txt","missing.txt"]}`, expectedStatus: http.StatusOK, expectedOutput: "Selected 1 files (0 already selected, 1 skipped)"},
		{name: "select_folder", command: bridgeCommandSelect, body: `{"paths":["sub"]}`, expectedStatus: http.StatusOK, expectedOutput: "20 characters"},
		{name: "select_without_paths", command: bridgeCommandSelect, body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "select_invalid_json", command: bridgeCommandSelect, body: `{"paths":`, expectedStatus: http.StatusBadRequest},
		{name: "toggle_unknown", command: bridgeCommandToggle, body: `{"path":"missing.txt"}`, expectedStatus: http.StatusNotFound},
		{name: "unselect_file", command: bridgeCommandUnselect, body: `{"paths":["sub/b.txt"]}`, expectedStatus: http.StatusOK, expectedOutput: "7 characters"},
		{name: "status", command: bridgeCommandStatus, expectedStatus: http.StatusOK, expectedOutput: "7 characters"},
		{name: "generate", command: bridgeCommandGenerate, body: `{"suffix":"explain"}`, expectedStatus: http.StatusOK},
		{name: "clear", command: bridgeCommandClear, expectedStatus: http.StatusOK, expectedOutput: "0 characters"},
		{name: "select_with_unknown_path", command: bridgeCommandSelect, body: `{"paths":["a.txt","missing.txt"]}`, expectedStatus: http.StatusNotFound},
		{name: "rejected_select_changes_nothing", command: bridgeCommandStatus, expectedStatus: http.StatusOK, expectedOutput: "0 characters"},
		{name: "select_all", command: bridgeCommandSelectAll, expectedStatus: http.StatusOK, expectedOutput: "20 characters"},
	}
	for _, step := range testSteps {
		statusCode, body := post(step.command, step.body)
		if statusCode != step.expectedStatus {
			t.Fatalf("%s: status %d, want %d (%v)", step.name, statusCode, step.expectedStatus, body)
		}
		if step.expectedOutput != "" && body["output"] != step.expectedOutput {
			t.Fatalf("%s: output %v, want %q", step.name, body["output"], step.expectedOutput)
		}
		if step.name == "status" {
			data, _ := body["data"].(map[string]interface{})
			files, _ := data["files"].([]interface{})
			if len(files) != 1 || files[0] != "a.txt" {
				t.Fatalf("status files = %v, want [a.txt]", data["files"])
			}
		}
		if step.name == "generate" {
			data, _ := body["data"].(map[string]interface{})
			if !strings.HasSuffix(data["path"].(string), expectedArtifactName) {
				t.Fatalf("unexpected artifact path %v", data["path"])
			}
			if data["characters"] != float64(len("a.txt\nX\n\nexplain")) {
				t.Fatalf("characters = %v", data["characters"])
			}
		}
	}

	treeStatus, treeBody := post(bridgeCommandTree, "")
	if treeStatus != http.StatusOK || !strings.Contains(treeBody["output"].(string), "└─ a.txt") {
		t.Fatalf("unexpected tree response %d %v", treeStatus, treeBody)
	}
}

func TestBridgeCapabilitiesCoverExecutors(t *testing.T) {
	executors := bridgeExecutors{}.commandExecutors()
	capabilities := bridgeCapabilities()
	if len(capabilities) != len(executors) {
		t.Fatalf("%d capabilities for %d executors", len(capabilities), len(executors))
	}
	for _, capability := range capabilities {
		if _, found := executors[capability.Name]; !found {
			t.Fatalf("capability %s has no executor", capability.Name)
		}
	}
}
