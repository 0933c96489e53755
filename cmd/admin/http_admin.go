package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func encounterCmd(args []string) {
	fs := flag.NewFlagSet("encounter", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/encounter"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fatal(1, "request:", err)
	}
	printResponse(resp)
}

// respawnCmd runs respawnbradley with console origin, the way a shop
// purchase would.
func respawnCmd(args []string) {
	fs := flag.NewFlagSet("respawn", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	player := fs.String("player", "", "player id the respawn is for")
	_ = fs.Parse(args)

	body := map[string]any{"command": "respawnbradley"}
	if *player != "" {
		body["args"] = []string{*player}
	}
	b, _ := json.Marshal(body)
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/command"
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Post(u, "application/json", bytes.NewReader(b))
	if err != nil {
		fatal(1, "request:", err)
	}
	printResponse(resp)
}

func postCmd(name, path string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fatal(1, "request:", err)
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
