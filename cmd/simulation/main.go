package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	baseURL = "http://localhost:3000/api"
	wsURL   = "ws://localhost:3000/api/ws"
	userID  = "a2b94f4c-b674-433b-90be-65a91a37e7a3"
)

// Simplified DTOs for the script
type createSessionResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type sendChatRequest struct {
	ChatSessionID string `json:"chat_session_id"`
	Chat          string `json:"chat"`
}

type sendChatResponse struct {
	Data struct {
		RunID string `json:"run_id"`
		State string `json:"state"`
	} `json:"data"`
}

type statusUpdate struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	State      string `json:"state"`
	Phase      string `json:"phase"`
	Chunk      string `json:"chunk"`
	Failure    string `json:"failure"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Candidates []struct {
		VideoSetID string  `json:"video_set_id"`
		Title      string  `json:"title"`
		Similarity float64 `json:"similarity"`
		PreviewURL string  `json:"preview_url"`
	} `json:"candidates"`
}

func main() {
	fmt.Println("=== Run Pipeline Simulation Client ===")
	fmt.Printf("Connecting as User: %s\n", userID)

	updates, err := listenStatus()
	if err != nil {
		log.Fatalf("Failed to open websocket: %v", err)
	}

	sessionID, err := createSession()
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	fmt.Printf("Session Created: %s\n", sessionID)

	testCases := []string{
		"what did I write about the billing migration yesterday",
	}

	for _, text := range testCases {
		fmt.Printf("\nUSER: %s\n", text)

		runID, err := sendChat(sessionID, text)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("Run Accepted: %s\n", runID)

		watchRun(runID, updates)

		// Small delay to allow async logs to flush on server side (optional)
		time.Sleep(1 * time.Second)
	}
}

// watchRun prints status updates for one run until it reaches a terminal
// state. A video-selection gate is resolved automatically with the top
// candidate so the script can run unattended.
func watchRun(runID string, updates <-chan statusUpdate) {
	var answer strings.Builder
	deadline := time.After(120 * time.Second)

	for {
		select {
		case u := <-updates:
			if u.RunID != runID {
				continue
			}
			switch u.Type {
			case "phase":
				fmt.Printf("  [phase] %s\n", u.Phase)
			case "awaiting_selection":
				fmt.Printf("  [gate] %d candidates:\n", len(u.Candidates))
				for _, c := range u.Candidates {
					fmt.Printf("    - %s (%.2f) %s\n", c.Title, c.Similarity, c.PreviewURL)
				}
				if len(u.Candidates) > 0 {
					if err := resolveSelection(runID, u.Candidates[0].VideoSetID); err != nil {
						fmt.Printf("  Selection error: %v\n", err)
					}
				}
			case "first_token":
				fmt.Println("  [stream] first token")
			case "chunk":
				answer.WriteString(u.Chunk)
			case "completed":
				fmt.Printf("AI (%dms): %s\n", u.ElapsedMs, answer.String())
				return
			case "stopped":
				fmt.Printf("Run stopped (state=%s). Partial: %s\n", u.State, answer.String())
				return
			case "failed":
				fmt.Printf("Run failed: %s\n", u.Failure)
				return
			}
		case <-deadline:
			fmt.Println("Timed out waiting for run to finish")
			return
		}
	}
}

// listenStatus connects to the status websocket and decodes everything the
// server pushes for this user.
func listenStatus() (<-chan statusUpdate, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?user_id="+userID, nil)
	if err != nil {
		return nil, err
	}

	updates := make(chan statusUpdate, 64)
	go func() {
		defer conn.Close()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				close(updates)
				return
			}
			var u statusUpdate
			if err := json.Unmarshal(payload, &u); err != nil {
				continue
			}
			// Domain event mirrors share the socket; the run watcher only
			// cares about status updates.
			if u.Type == "event" {
				continue
			}
			updates <- u
		}
	}()
	return updates, nil
}

func createSession() (string, error) {
	req, _ := http.NewRequest("POST", baseURL+"/chat/v1/session", nil)
	req.Header.Set("X-User-Id", userID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Data.ID, nil
}

func sendChat(sessionID, text string) (string, error) {
	payload := sendChatRequest{
		ChatSessionID: sessionID,
		Chat:          text,
	}
	jsonBytes, _ := json.Marshal(payload)

	req, _ := http.NewRequest("POST", baseURL+"/chat/v1/send", bytes.NewBuffer(jsonBytes))
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 202 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res sendChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Data.RunID, nil
}

func resolveSelection(runID, videoSetID string) error {
	jsonBytes, _ := json.Marshal(map[string][]string{
		"video_set_ids": {videoSetID},
	})

	req, _ := http.NewRequest("POST", baseURL+"/chat/v1/runs/"+runID+"/selection", bytes.NewBuffer(jsonBytes))
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
