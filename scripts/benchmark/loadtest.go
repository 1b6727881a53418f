package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamlinechat/streamline/internal/protocol"
)

// Load test for the streaming chat endpoint. Each request is counted as a
// failure unless the full event stream, sentinel included, is consumed.
type Stats struct {
	totalRequests int64
	totalErrors   int64
	totalChunks   int64
	totalDuration int64 // microseconds, first byte to sentinel
	minLatency    int64
	maxLatency    int64
	latencies     []int64
	mu            sync.Mutex
}

func main() {
	duration := flag.Int("duration", 30, "Test duration in seconds")
	concurrency := flag.Int("c", 50, "Number of concurrent workers")
	rps := flag.Int("rps", 0, "Target requests per second (0 = unlimited)")
	url := flag.String("url", "http://localhost:8080/api/chat", "Target URL")
	message := flag.String("message", "벤치마크 메시지입니다.", "Chat message to send")

	flag.Parse()

	fmt.Printf("Starting load test:\n")
	fmt.Printf("  URL: %s\n", *url)
	fmt.Printf("  Duration: %d seconds\n", *duration)
	fmt.Printf("  Concurrency: %d\n", *concurrency)
	fmt.Printf("  Target RPS: %d\n", *rps)
	fmt.Println()

	stats := &Stats{minLatency: 9999999999}

	var wg sync.WaitGroup
	start := time.Now()
	done := make(chan bool)

	var ticker *time.Ticker
	var rateChan <-chan time.Time
	if *rps > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(*rps))
		rateChan = ticker.C
	}

	transport := &http.Transport{
		MaxIdleConns:        10000,
		MaxIdleConnsPerHost: 10000,
		MaxConnsPerHost:     10000,
		IdleConnTimeout:     90 * time.Second,
	}
	// No client timeout: a slow model keeps the stream open legitimately.
	sharedClient := &http.Client{Transport: transport}

	payload, _ := json.Marshal(map[string]any{
		"message": *message,
		"history": []any{},
	})

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					if rateChan != nil {
						<-rateChan
					}

					reqStart := time.Now()
					chunks, err := streamOnce(sharedClient, *url, payload)
					latency := time.Since(reqStart).Microseconds()

					atomic.AddInt64(&stats.totalRequests, 1)
					atomic.AddInt64(&stats.totalDuration, latency)
					atomic.AddInt64(&stats.totalChunks, chunks)

					stats.mu.Lock()
					stats.latencies = append(stats.latencies, latency)
					stats.mu.Unlock()

					for {
						old := atomic.LoadInt64(&stats.minLatency)
						if latency >= old || atomic.CompareAndSwapInt64(&stats.minLatency, old, latency) {
							break
						}
					}
					for {
						old := atomic.LoadInt64(&stats.maxLatency)
						if latency <= old || atomic.CompareAndSwapInt64(&stats.maxLatency, old, latency) {
							break
						}
					}

					if err != nil {
						atomic.AddInt64(&stats.totalErrors, 1)
					}
				}
			}
		}()
	}

	time.AfterFunc(time.Duration(*duration)*time.Second, func() {
		close(done)
	})

	wg.Wait()
	if ticker != nil {
		ticker.Stop()
	}

	elapsed := time.Since(start).Seconds()

	sort.Slice(stats.latencies, func(i, j int) bool {
		return stats.latencies[i] < stats.latencies[j]
	})

	p50 := percentile(stats.latencies, 0.50)
	p95 := percentile(stats.latencies, 0.95)
	p99 := percentile(stats.latencies, 0.99)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Benchmark Results")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Requests:     %d\n", stats.totalRequests)
	fmt.Printf("Total Failures:     %d\n", stats.totalErrors)
	fmt.Printf("Total Chunks:       %d\n", stats.totalChunks)
	fmt.Printf("Duration:           %.2f seconds\n", elapsed)
	fmt.Printf("Requests/sec:       %.2f\n", float64(stats.totalRequests)/elapsed)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Min Latency:        %.2f ms\n", float64(stats.minLatency)/1000)
	fmt.Printf("P50 Latency:        %.2f ms\n", float64(p50)/1000)
	fmt.Printf("Average Latency:    %.2f ms\n", float64(stats.totalDuration)/float64(stats.totalRequests)/1000)
	fmt.Printf("P95 Latency:        %.2f ms\n", float64(p95)/1000)
	fmt.Printf("P99 Latency:        %.2f ms\n", float64(p99)/1000)
	fmt.Printf("Max Latency:        %.2f ms\n", float64(stats.maxLatency)/1000)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Error Rate:         %.2f%%\n", float64(stats.totalErrors)/float64(stats.totalRequests)*100)
	fmt.Println(strings.Repeat("=", 60))
}

// streamOnce posts one chat request and drains the event stream to its
// terminal, returning the number of chunk frames seen.
func streamOnce(client *http.Client, url string, payload []byte) (int64, error) {
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	dec := protocol.NewDecoder(resp.Body)
	var chunks int64
	for {
		_, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks++
	}
}

func percentile(latencies []int64, p float64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	index := int(float64(len(latencies)) * p)
	if index >= len(latencies) {
		index = len(latencies) - 1
	}
	return latencies[index]
}
