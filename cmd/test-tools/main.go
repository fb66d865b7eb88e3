package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	binary := flag.String("bin", "", "path to the mvukit binary (default: search ./mvukit)")
	flag.Parse()

	fmt.Println("🧪 Testing the mvukit inspector over MCP")
	fmt.Println("=======================================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	serverPath := *binary
	if serverPath == "" {
		serverPath = findServerBinary()
	}
	if serverPath == "" {
		log.Fatal("❌ mvukit binary not found. Run: go build -o mvukit .")
	}
	fmt.Println("✅ Test 1: mvukit binary found")

	cmd := exec.Command(serverPath, "--inspect", "--no-monitor")
	cmd.Env = append(os.Environ(),
		"MVUKIT_JOURNAL_ENABLED=true",
		"MVUKIT_JOURNAL_PATH=",
	)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to inspector: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Test 2: Connected to inspector")

	fmt.Println("\n✓ Test 3: Listing available tools")
	listResult, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Fatalf("❌ Failed to list tools: %v", err)
	}
	fmt.Printf("  Found %d tools:\n", len(listResult.Tools))
	for _, tool := range listResult.Tools {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	// Components start asynchronously; give the app a moment to launch its children.
	time.Sleep(500 * time.Millisecond)

	fmt.Println("\n✓ Test 4: list_components")
	var listed struct {
		Components []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"components"`
	}
	if call(ctx, session, "list_components", nil, &listed) {
		fmt.Printf("  ✅ %d live components\n", len(listed.Components))
		for _, c := range listed.Components {
			fmt.Printf("    %s  %s\n", c.ID, c.Name)
		}
	}

	fmt.Println("\n✓ Test 5: inspect_component by name")
	var inspected struct {
		Model string `json:"model"`
		View  string `json:"view"`
	}
	if call(ctx, session, "inspect_component", map[string]any{"name": "countr"}, &inspected) {
		fmt.Printf("  ✅ model: %s\n", inspected.Model)
		fmt.Printf("  ✅ view:\n%s\n", inspected.View)
	}

	fmt.Println("\n✓ Test 6: close_component")
	var meterID string
	for _, c := range listed.Components {
		if c.Name == "meter" {
			meterID = c.ID
		}
	}
	if meterID == "" {
		fmt.Println("  ⚠️  No meter component to close")
	} else if call(ctx, session, "close_component", map[string]any{"id": meterID}, nil) {
		fmt.Println("  ✅ meter closed")
	}

	fmt.Println("\n✓ Test 7: recent_events")
	time.Sleep(1500 * time.Millisecond) // journal flush interval
	var events struct {
		Events []struct {
			Kind      string `json:"kind"`
			Component string `json:"component"`
		} `json:"events"`
	}
	if call(ctx, session, "recent_events", map[string]any{"limit": 10}, &events) {
		fmt.Printf("  ✅ %d events\n", len(events.Events))
		for _, ev := range events.Events {
			fmt.Printf("    %-22s %s\n", ev.Kind, ev.Component)
		}
	}

	fmt.Println("\n=======================================")
	fmt.Println("✅ All inspector tool tests complete!")
	fmt.Println("\n💡 To explore interactively, run: go run ./cmd/mcp-client ./mvukit --inspect")
}

// call invokes a tool and decodes its structured result into out.
func call(ctx context.Context, session *mcp.ClientSession, name string, args map[string]any, out any) bool {
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		fmt.Printf("  ❌ %s failed: %v\n", name, err)
		return false
	}
	if res.IsError {
		for _, content := range res.Content {
			if v, ok := content.(*mcp.TextContent); ok {
				fmt.Printf("  ❌ %s returned an error: %s\n", name, v.Text)
			}
		}
		return false
	}
	if out == nil || res.StructuredContent == nil {
		return true
	}
	data, err := json.Marshal(res.StructuredContent)
	if err == nil {
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		fmt.Printf("  ❌ %s: cannot decode result: %v\n", name, err)
		return false
	}
	return true
}

func findServerBinary() string {
	candidates := []string{
		"./mvukit",
		"../../mvukit",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}
