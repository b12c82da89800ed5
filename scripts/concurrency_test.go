//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the borrow API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <token1> [token2 ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid>  TOKENS=<jwt1>,<jwt2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per user token) all attempting to borrow the
//     same book simultaneously.
//  2. Prints how many got the book vs. were told it is unavailable.
//  3. With a book seeded at stock=1, a correct server produces exactly one
//     201 and N-1 422 "not available" responses — the row lock serializes
//     the stock check, so the last copy can never be granted twice.
//
// Prerequisites:
//   - Server must be running (`librarium serve`), schema migrated.
//   - One book with known stock and N registered users with valid tokens.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Token      string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var tokens []string
	if raw := os.Getenv("TOKENS"); raw != "" {
		tokens = strings.Split(raw, ",")
	}

	// Support positional args: script <book_id> [tokens...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		tokens = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> TOKENS=<jwt1,jwt2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <token1> [token2 ...]")
	}
	if len(tokens) == 0 {
		log.Fatal("At least one user token must be provided via TOKENS env or positional args")
	}

	fmt.Printf("=== Borrow Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("Users  : %d\n\n", len(tokens))

	results := make([]borrowResult, len(tokens))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, token string) {
			defer wg.Done()
			<-start // wait for the barrier
			results[idx] = attemptBorrow(serverAddr, bookID, strings.TrimSpace(token))
		}(i, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, unavailable, other, failures int
	for i, r := range results {
		label := fmt.Sprintf("user#%d", i+1)
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] %-8s err=%v\n", label, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
			fmt.Printf("  [BRRW] %-8s status=%d\n", label, r.StatusCode)
		case r.StatusCode == http.StatusUnprocessableEntity:
			unavailable++
			fmt.Printf("  [FULL] %-8s status=%d message=%q\n", label, r.StatusCode, r.Message)
		default:
			other++
			fmt.Printf("  [????] %-8s status=%d message=%q\n", label, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed    : %d\n", borrowed)
	fmt.Printf("Unavailable : %d\n", unavailable)
	fmt.Printf("Other       : %d\n", other)
	fmt.Printf("Failures    : %d\n", failures)
	fmt.Printf("Total       : %d\n\n", len(tokens))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("Borrows granted must not exceed the book's starting stock; with stock=1")
	fmt.Println("exactly one request may succeed. The FOR UPDATE row lock plus the")
	fmt.Println("uniq_active_borrow partial index enforce this at the database level.")

	if failures > 0 || other > 0 {
		fmt.Printf("\n[WARNING] %d request(s) had unexpected outcomes — check server logs.\n", failures+other)
		os.Exit(1)
	}
}

// attemptBorrow sends POST /api/v1/borrows with the given bearer token and
// parses the response envelope.
func attemptBorrow(serverAddr, bookID, token string) borrowResult {
	url := serverAddr + "/api/v1/borrows"
	body := fmt.Sprintf(`{"book_id":%q}`, bookID)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{Token: token, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	return borrowResult{
		Token:      token,
		StatusCode: resp.StatusCode,
		Message:    parsed.Message,
	}
}
