package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const (
	baseURL = "http://localhost:3000/api"
	userID  = "a2b94f4c-b674-433b-90be-65a91a37e7a3"
)

// Smallest valid JPEG; stands in for captured screen frames.
const tinyJPEG = "/9j/4AAQSkZJRgABAQEAYABgAAD/2wBDAAgGBgcGBQgHBwcJCQgKDBQNDAsLDBkSEw8UHRofHh0aHBwgJC4nICIsIxwcKDcpLDAxNDQ0Hyc5PTgyPC4zNDL/wAALCAABAAEBAREA/8QAFAABAAAAAAAAAAAAAAAAAAAACv/EABQQAQAAAAAAAAAAAAAAAAAAAAD/2gAIAQEAAD8AVN//2Q=="

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID)

	client := &http.Client{} // No timeout; generation can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func dataField(body []byte) map[string]interface{} {
	var envelope map[string]interface{}
	json.Unmarshal(body, &envelope)
	if data, ok := envelope["data"].(map[string]interface{}); ok {
		return data
	}
	return map[string]interface{}{}
}

func main() {
	color.Cyan("🚀 Starting Run Pipeline API Probe\n")

	// 1. Ingest a recording so visual search has candidates
	color.Yellow("\n[MEDIA] 1. Ingest Demo Recording")
	ingestReq := map[string]interface{}{
		"title": "Probe: invoice dashboard capture",
		"clips": []map[string]interface{}{
			{
				"duration_ms": 30000,
				"frames": []map[string]interface{}{
					{"offset_ms": 0, "image_base64": tinyJPEG},
					{"offset_ms": 15000, "image_base64": tinyJPEG},
				},
			},
		},
	}
	resp, body, err := sendRequest("POST", "/media/v1/recordings", ingestReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(dataField(body))

	// 2. Create a session
	color.Yellow("\n[CHAT] 2. Create Session")
	resp, body, err = sendRequest("POST", "/chat/v1/session", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	sessionID, _ := dataField(body)["id"].(string)
	fmt.Printf("Session: %s\n", sessionID)

	// 3. List sessions
	color.Yellow("\n[CHAT] 3. List Sessions")
	resp, body, err = sendRequest("GET", "/chat/v1/sessions", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 4. Start a run
	color.Yellow("\n[RUN] 4. Send Chat (async)")
	resp, body, err = sendRequest("POST", "/chat/v1/send", map[string]interface{}{
		"chat_session_id": sessionID,
		"chat":            "what was on the invoice dashboard I captured",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	runID, _ := dataField(body)["run_id"].(string)
	fmt.Printf("Run: %s\n", runID)

	// 5. Poll to a terminal state, resolving the gate if it opens
	color.Yellow("\n[RUN] 5. Poll Run Status")
	finalState := pollRun(runID)
	color.Green("Final state: %s", finalState)

	// 6. Read back history (placeholder should hold the final answer)
	color.Yellow("\n[CHAT] 6. Get History")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID+"/history", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyEnvelope map[string]interface{}
	json.Unmarshal(body, &historyEnvelope)
	prettyPrint(historyEnvelope)

	// 7. Cancel path: start a run and stop it immediately
	color.Yellow("\n[RUN] 7. Send + Immediate Cancel")
	resp, body, err = sendRequest("POST", "/chat/v1/send", map[string]interface{}{
		"chat_session_id": sessionID,
		"chat":            "this run should never finish",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	cancelRunID, _ := dataField(body)["run_id"].(string)
	resp, body, err = sendRequest("POST", "/chat/v1/runs/"+cancelRunID+"/cancel", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(dataField(body))

	// 8. Cancel is idempotent
	color.Yellow("\n[RUN] 8. Cancel Again (idempotent)")
	resp, body, err = sendRequest("POST", "/chat/v1/runs/"+cancelRunID+"/cancel", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(dataField(body))

	// 9. Clean up
	color.Yellow("\n[CHAT] 9. Delete Session")
	resp, _, err = sendRequest("DELETE", "/chat/v1/session/"+sessionID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	color.Cyan("\n✅ Probe finished")
}

// pollRun watches the run snapshot until it lands in a terminal state. If
// the run stops at the selection gate, the top candidate is submitted so the
// probe can run unattended.
func pollRun(runID string) string {
	for i := 0; i < 240; i++ {
		time.Sleep(500 * time.Millisecond)

		resp, body, err := sendRequest("GET", "/chat/v1/runs/"+runID, nil)
		if err != nil {
			color.Red("Poll failed: %v", err)
			return "unknown"
		}
		if resp.StatusCode == 404 {
			// Registry entry is gone; the run finished and was reaped.
			return "finished (reaped)"
		}

		data := dataField(body)
		state, _ := data["state"].(string)
		fmt.Printf("  state=%s\n", state)

		if state == "awaiting_video_selection" {
			candidates, _ := data["candidates"].([]interface{})
			if len(candidates) > 0 {
				first, _ := candidates[0].(map[string]interface{})
				setID, _ := first["video_set_id"].(string)
				color.Yellow("  Gate open (%d candidates), selecting %s", len(candidates), setID)
				_, _, err := sendRequest("POST", "/chat/v1/runs/"+runID+"/selection", map[string]interface{}{
					"video_set_ids": []string{setID},
				})
				if err != nil {
					color.Red("  Selection failed: %v", err)
				}
			}
			continue
		}

		switch state {
		case "completed", "stopped_before_tokens", "stopped_after_tokens", "failed":
			return state
		}
	}
	return "timed out"
}
