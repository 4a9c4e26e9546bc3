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
	"sync/atomic"
	"time"
)

type LoadTestResult struct {
	TotalRequests       int64
	SuccessfulRequests  int64
	FailedRequests      int64
	RateLimitedRequests int64
	TotalDuration       time.Duration
	AverageResponseTime time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	RequestsPerSecond   float64
}

type RequestResult struct {
	UserID     string
	Success    bool
	Duration   time.Duration
	Error      error
	StatusCode int
}

func main() {
	log.Println("Starting Load Test")

	baseURL := "http://localhost:8080"
	if v := os.Getenv("TARGET_URL"); v != "" {
		baseURL = v
	}
	totalRequests := 5000
	numUsers := 10
	concurrentWorkers := 100

	// For quick test
	if len(os.Args) > 1 && os.Args[1] == "quick" {
		totalRequests = 50
		concurrentWorkers = 10
		log.Println("QUICK TEST MODE: 50 requests, 10 concurrent workers")
	}

	userIDs := generateUserIDs(numUsers)

	// Setup phase: one habit per user, toggled in the hot loop.
	habitIDs := make(map[string]string, len(userIDs))
	for _, userID := range userIDs {
		habitID, err := createHabit(baseURL, userID)
		if err != nil {
			log.Fatalf("Failed to create habit for %s: %v", userID, err)
		}
		habitIDs[userID] = habitID
	}
	log.Printf("Created %d habits for %d users", len(habitIDs), len(userIDs))

	result := runLoadTest(baseURL, totalRequests, userIDs, habitIDs, concurrentWorkers)

	printResults(result)
}

func generateUserIDs(count int) []string {
	userIDs := make([]string, count)
	for i := 0; i < count; i++ {
		userIDs[i] = fmt.Sprintf("loadtest_user_%d", i+1)
	}
	return userIDs
}

func createHabit(baseURL, userID string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"title":      "Load test habit",
		"category":   "other",
		"habit_type": "binary",
	})
	req, err := http.NewRequest("POST", baseURL+"/habits", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var habit struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&habit); err != nil {
		return "", err
	}
	return habit.ID, nil
}

func runLoadTest(baseURL string, totalRequests int, userIDs []string, habitIDs map[string]string, concurrentWorkers int) LoadTestResult {
	var (
		successfulRequests int64
		failedRequests     int64
		rateLimited        int64
		totalDuration      int64
		minResponseTime    int64 = 1<<63 - 1
		maxResponseTime    int64
		mu                 sync.Mutex
	)

	requestChan := make(chan string, totalRequests)
	resultChan := make(chan RequestResult, totalRequests)

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < concurrentWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for userID := range requestChan {
				resultChan <- makeRequest(baseURL, userID, habitIDs[userID], n)
				n++
			}
		}()
	}

	// Start result collector
	go func() {
		for result := range resultChan {
			if result.Success {
				atomic.AddInt64(&successfulRequests, 1)
			} else {
				atomic.AddInt64(&failedRequests, 1)
				if result.StatusCode == http.StatusTooManyRequests {
					atomic.AddInt64(&rateLimited, 1)
				}
			}

			duration := int64(result.Duration)
			atomic.AddInt64(&totalDuration, duration)

			mu.Lock()
			if duration < minResponseTime {
				minResponseTime = duration
			}
			if duration > maxResponseTime {
				maxResponseTime = duration
			}
			mu.Unlock()
		}
	}()

	startTime := time.Now()
	log.Printf("Starting %d requests with %d concurrent workers...", totalRequests, concurrentWorkers)

	for i := 0; i < totalRequests; i++ {
		requestChan <- userIDs[i%len(userIDs)]
	}

	close(requestChan)
	wg.Wait()
	close(resultChan)

	duration := time.Since(startTime)

	successful := atomic.LoadInt64(&successfulRequests)
	failed := atomic.LoadInt64(&failedRequests)
	total := atomic.LoadInt64(&totalDuration)

	mu.Lock()
	minTime := minResponseTime
	maxTime := maxResponseTime
	mu.Unlock()

	avgTime := time.Duration(0)
	if successful > 0 {
		avgTime = time.Duration(total / successful)
	}

	return LoadTestResult{
		TotalRequests:       int64(totalRequests),
		SuccessfulRequests:  successful,
		FailedRequests:      failed,
		RateLimitedRequests: atomic.LoadInt64(&rateLimited),
		TotalDuration:       duration,
		AverageResponseTime: avgTime,
		MinResponseTime:     time.Duration(minTime),
		MaxResponseTime:     time.Duration(maxTime),
		RequestsPerSecond:   float64(totalRequests) / duration.Seconds(),
	}
}

// makeRequest rotates across the endpoints a real client hits: toggling the
// habit, reading stats, and reading analytics.
func makeRequest(baseURL, userID, habitID string, seq int) RequestResult {
	startTime := time.Now()

	var req *http.Request
	var err error
	switch seq % 3 {
	case 0:
		req, err = http.NewRequest("POST", baseURL+"/habits/"+habitID+"/toggle", nil)
	case 1:
		req, err = http.NewRequest("GET", baseURL+"/user/stats", nil)
	default:
		req, err = http.NewRequest("GET", baseURL+"/analytics", nil)
	}
	if err != nil {
		return RequestResult{UserID: userID, Success: false, Error: err}
	}

	req.Header.Set("X-User-Id", userID)
	req.Header.Set("Connection", "close")

	client := &http.Client{
		Timeout: 2 * time.Minute,
	}
	resp, err := client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		return RequestResult{
			UserID:   userID,
			Success:  false,
			Duration: duration,
			Error:    err,
		}
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return RequestResult{
			UserID:     userID,
			Success:    false,
			Duration:   duration,
			Error:      err,
			StatusCode: resp.StatusCode,
		}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	return RequestResult{
		UserID:     userID,
		Success:    success,
		Duration:   duration,
		StatusCode: resp.StatusCode,
	}
}

func printResults(result LoadTestResult) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Requests:        %d\n", result.TotalRequests)
	fmt.Printf("Successful Requests:   %d (%.2f%%)\n", result.SuccessfulRequests,
		float64(result.SuccessfulRequests)/float64(result.TotalRequests)*100)
	fmt.Printf("Failed Requests:       %d (%.2f%%)\n", result.FailedRequests,
		float64(result.FailedRequests)/float64(result.TotalRequests)*100)
	fmt.Printf("Rate Limited:          %d\n", result.RateLimitedRequests)
	fmt.Printf("Total Duration:        %v\n", result.TotalDuration)
	fmt.Printf("Requests Per Second:   %.2f\n", result.RequestsPerSecond)
	fmt.Printf("Average Response Time: %v\n", result.AverageResponseTime)
	fmt.Printf("Min Response Time:     %v\n", result.MinResponseTime)
	fmt.Printf("Max Response Time:     %v\n", result.MaxResponseTime)
}
