// Seeds a demo rule set with a handful of California edibles rules through
// the HTTP API. Run against a local server:
//
//	API_TOKEN=<jwt> go run scripts/seed_demo_rules.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

type ruleSeed struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Severity         string `json:"severity"`
	ValidationPrompt string `json:"validation_prompt"`
	SourceCitation   string `json:"source_citation"`
}

var demoRules = []ruleSeed{
	{
		Name:             "THC Content Per Package",
		Description:      "Total THC milligrams per package must be printed on the primary panel.",
		Category:         "THC Content",
		Severity:         "error",
		ValidationPrompt: "Verify the label states total THC in milligrams for the whole package.",
		SourceCitation:   "CCR Title 4 s17408(a)",
	},
	{
		Name:             "Government Warning Statement",
		Description:      "The full statutory warning must appear in bold, contrasting text.",
		Category:         "Warning Statements",
		Severity:         "error",
		ValidationPrompt: "Verify the label carries the complete GOVERNMENT WARNING text required for cannabis products.",
		SourceCitation:   "B&P Code s26120(c)(1)",
	},
	{
		Name:             "Universal Symbol",
		Description:      "The California universal cannabis symbol must be at least half an inch.",
		Category:         "Child Safety",
		Severity:         "error",
		ValidationPrompt: "Verify the universal symbol appears on the label and is not obscured.",
		SourceCitation:   "CCR Title 4 s17406",
	},
	{
		Name:             "Net Weight Declaration",
		Description:      "Net weight must appear in both metric and US customary units.",
		Category:         "Net Weight",
		Severity:         "warning",
		ValidationPrompt: "Verify net weight is printed in grams and ounces.",
		SourceCitation:   "CCR Title 4 s17408(a)(5)",
	},
}

func post(client *http.Client, baseURL, token, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: http %d: %s", path, resp.StatusCode, raw)
	}
	return raw, nil
}

func main() {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := os.Getenv("API_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "API_TOKEN is required")
		os.Exit(1)
	}

	client := &http.Client{}
	raw, err := post(client, baseURL, token, "/api/rule-sets", map[string]string{
		"name":               "California Edibles (demo)",
		"description":        "Seeded demo rule set",
		"state_name":         "California",
		"state_abbreviation": "CA",
		"product_type":       "edibles",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == "" {
		fmt.Fprintf(os.Stderr, "could not read rule set id from response: %s\n", raw)
		os.Exit(1)
	}
	fmt.Printf("rule set %s\n", created.ID)

	for _, rule := range demoRules {
		if _, err := post(client, baseURL, token, "/api/rule-sets/"+created.ID+"/rules", rule); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("  rule %q\n", rule.Name)
	}
}
