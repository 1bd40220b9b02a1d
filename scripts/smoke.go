package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Smoke-checks a running API instance: health plus the seeded catalog.
func main() {
	var baseURL string
	flag.StringVar(&baseURL, "url", "http://localhost:8082", "Base URL of the API")
	flag.Parse()

	log.Printf("Smoke checking API at: %s", baseURL)

	client := &http.Client{Timeout: 10 * time.Second}

	if err := checkHealth(client, baseURL); err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	log.Println("Health check passed")

	if err := checkCatalog(client, baseURL); err != nil {
		log.Fatalf("Catalog check failed: %v", err)
	}
	log.Println("Catalog check passed")

	log.Println("All smoke checks passed")
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected 200, got %d", resp.StatusCode)
	}
	return nil
}

func checkCatalog(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/services")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var services []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("catalog is empty, migrations did not seed it")
	}
	return nil
}
