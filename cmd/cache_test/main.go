package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/internal/shared/constants"

	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

type CacheTestResult struct {
	Endpoint     string        `json:"endpoint"`
	CacheStatus  string        `json:"cache_status"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

type CacheTestSuite struct {
	BaseURL string
	Redis   *redis.Client
	Client  *http.Client
	Results []CacheTestResult
}

func main() {
	cfg := config.Load()

	suite := &CacheTestSuite{
		BaseURL: fmt.Sprintf("http://localhost:%s%s", cfg.Port, cfg.GetAPIBasePath()),
		Redis: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		Client: &http.Client{Timeout: 30 * time.Second},
	}
	defer suite.Redis.Close()

	fmt.Println("🧪 Starting catalog cache check...")
	fmt.Println("==================================")

	ctx := context.Background()
	if err := suite.Redis.Ping(ctx).Err(); err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	fmt.Println("✅ Redis connection: OK")

	// start cold so the first request of each pair is a miss
	keys, err := suite.Redis.Keys(ctx, constants.PATTERN_INVALIDATE_CATALOG_ALL).Result()
	if err == nil && len(keys) > 0 {
		suite.Redis.Del(ctx, keys...)
	}

	endpoints := []struct {
		name     string
		endpoint string
	}{
		{"Catalog page 1", "/catalog/items?page=1&limit=10"},
		{"Destinations", "/catalog/items?kind=destination"},
		{"Flights", "/catalog/items?kind=flight"},
		{"Catalog in EUR", "/catalog/items?page=1&limit=10&currency=EUR"},
		{"Exchange rates", "/currency/rates"},
	}

	if id := suite.firstItemID(); id != "" {
		endpoints = append(endpoints, struct {
			name     string
			endpoint string
		}{"Item detail", "/catalog/items/" + id})
	}

	for _, tc := range endpoints {
		fmt.Printf("\n🔍 Testing: %s\n", tc.name)

		miss := suite.testEndpoint(tc.endpoint, "MISS")
		suite.Results = append(suite.Results, miss)

		time.Sleep(100 * time.Millisecond)
		hit := suite.testEndpoint(tc.endpoint, "HIT")
		suite.Results = append(suite.Results, hit)

		if miss.Success && hit.Success && miss.ResponseTime > 0 {
			improvement := float64(miss.ResponseTime-hit.ResponseTime) / float64(miss.ResponseTime) * 100
			fmt.Printf("   📈 Performance improvement: %.1f%% (%v -> %v)\n",
				improvement, miss.ResponseTime, hit.ResponseTime)
		}
	}

	cached, _ := suite.Redis.Keys(ctx, constants.PATTERN_INVALIDATE_CATALOG_ALL).Result()
	fmt.Printf("\n🗝️  Catalog keys in Redis: %d\n", len(cached))

	suite.generateReport()
	fmt.Println("\n🎉 Cache check complete!")
}

// firstItemID reads an item id off the public listing
func (s *CacheTestSuite) firstItemID() string {
	resp, err := s.Client.Get(s.BaseURL + "/catalog/items?limit=1")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return gjson.GetBytes(body, "data.items.0.id").String()
}

func (s *CacheTestSuite) testEndpoint(endpoint, expectedCacheStatus string) CacheTestResult {
	start := time.Now()

	resp, err := s.Client.Get(s.BaseURL + endpoint)
	if err != nil {
		return CacheTestResult{
			Endpoint:     endpoint,
			CacheStatus:  "ERROR",
			ResponseTime: time.Since(start),
			Error:        err.Error(),
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	responseTime := time.Since(start)

	actualCacheStatus := expectedCacheStatus
	if expectedCacheStatus == "HIT" && responseTime >= 50*time.Millisecond {
		actualCacheStatus = "MISS"
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 400
	result := CacheTestResult{
		Endpoint:     endpoint,
		CacheStatus:  actualCacheStatus,
		ResponseTime: responseTime,
		DataSize:     len(body),
		Success:      success,
	}
	if !success {
		result.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, gjson.GetBytes(body, "message").String())
	}

	statusIcon := "✅"
	if !success {
		statusIcon = "❌"
	}
	cacheIcon := "🔥"
	if actualCacheStatus == "MISS" {
		cacheIcon = "💾"
	}
	fmt.Printf("   %s %s [%s] %v (%d bytes)\n", statusIcon, cacheIcon, actualCacheStatus, responseTime, len(body))

	return result
}

func (s *CacheTestSuite) generateReport() {
	fmt.Println("\n📊 CACHE PERFORMANCE REPORT")
	fmt.Println("==========================")

	var successful, hits, misses int
	var hitTime, missTime time.Duration
	for _, result := range s.Results {
		if result.Success {
			successful++
		}
		switch result.CacheStatus {
		case "HIT":
			hits++
			hitTime += result.ResponseTime
		case "MISS":
			misses++
			missTime += result.ResponseTime
		}
	}

	total := len(s.Results)
	if total == 0 {
		return
	}
	fmt.Printf("Total Tests: %d\n", total)
	fmt.Printf("Successful: %d (%.1f%%)\n", successful, float64(successful)/float64(total)*100)
	fmt.Printf("Cache Hits: %d\n", hits)
	fmt.Printf("Cache Misses: %d\n", misses)

	if hits > 0 && misses > 0 {
		avgHit := hitTime / time.Duration(hits)
		avgMiss := missTime / time.Duration(misses)
		fmt.Printf("Average Cache Hit Time: %v\n", avgHit)
		fmt.Printf("Average Cache Miss Time: %v\n", avgMiss)
		fmt.Printf("Overall Cache Performance Improvement: %.1f%%\n", float64(avgMiss-avgHit)/float64(avgMiss)*100)
	}

	reportData, err := json.MarshalIndent(map[string]interface{}{
		"summary": map[string]interface{}{
			"total_tests":      total,
			"successful_tests": successful,
			"cache_hits":       hits,
			"cache_misses":     misses,
		},
		"results": s.Results,
	}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile("cache_test_results.json", reportData, 0o644); err != nil {
		fmt.Printf("⚠️  Could not save results: %v\n", err)
		return
	}
	fmt.Println("\n💾 Detailed results saved to cache_test_results.json")
}
