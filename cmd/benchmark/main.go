package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	numAccounts int
)

// Metrics
var (
	totalRequests uint64
	success201    uint64 // Committed transfers
	fail409       uint64 // Retry-exhausted conflicts
	fail422       uint64 // Insufficient funds
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&numAccounts, "accounts", 50, "Accounts to create before the run")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	client := &http.Client{Timeout: 5 * time.Second}
	ibans, err := setupAccounts(client)
	if err != nil {
		log.Fatalf("Account setup failed: %v", err)
	}
	log.Printf("Created and funded %d accounts", len(ibans))

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, ibans)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// setupAccounts creates the benchmark population and funds each account
// with 1000.00 so transfers have headroom.
func setupAccounts(client *http.Client) ([]string, error) {
	ibans := make([]string, 0, numAccounts)

	for i := 0; i < numAccounts; i++ {
		iban := newIBAN()

		if err := post(client, "/api/v1/accounts", map[string]interface{}{
			"iban":       iban,
			"owner_name": fmt.Sprintf("Bench Account %d", i),
		}, 201); err != nil {
			return nil, err
		}

		if err := post(client, "/api/v1/accounts/"+iban+"/credit", map[string]interface{}{
			"amount":    1000.00,
			"reference": "Benchmark funding",
		}, 200); err != nil {
			return nil, err
		}

		ibans = append(ibans, iban)
	}
	return ibans, nil
}

func post(client *http.Client, path string, payload map[string]interface{}, wantStatus int) error {
	body, _ := json.Marshal(payload)
	resp, err := client.Post(targetURL+path, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("POST %s: got status %d, want %d", path, resp.StatusCode, wantStatus)
	}
	return nil
}

func worker(wg *sync.WaitGroup, start time.Time, ibans []string) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		from, to := pickPair(ibans)

		payload := map[string]interface{}{
			"from_iban": from,
			"to_iban":   to,
			"amount":    1.00,
			"reference": "Benchmark transfer",
		}
		body, _ := json.Marshal(payload)

		resp, err := client.Post(targetURL+"/api/v1/transfers", "application/json", bytes.NewBuffer(body))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&success201, 1)
		case 409:
			atomic.AddUint64(&fail409, 1)
		case 422:
			atomic.AddUint64(&fail422, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickPair(ibans []string) (string, string) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic hammers the first two accounts
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return ibans[0], ibans[1]
			}
			return ibans[1], ibans[0]
		}
	}

	// Uniform Random
	a := rand.Intn(len(ibans))
	b := rand.Intn(len(ibans))
	for a == b {
		b = rand.Intn(len(ibans))
	}
	return ibans[a], ibans[b]
}

func newIBAN() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "DE" + raw[:20]
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	f409 := atomic.LoadUint64(&fail409)
	f422 := atomic.LoadUint64(&fail422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	abortRate := float64(f409) / float64(total) * 100

	results := map[string]interface{}{
		"workload":           workload,
		"duration_sec":       d.Seconds(),
		"total_requests":     total,
		"throughput_tps":     tps,
		"success_created":    s201,
		"aborts_conflict":    f409,
		"insufficient_funds": f422,
		"abort_rate_pct":     abortRate,
		"errors":             fErr,
	}

	// Emit results as JSON so runs are easy to diff and post-process
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
