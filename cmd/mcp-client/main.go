package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./mvukit --inspect")
		os.Exit(2)
	}

	ctx := context.Background()

	cmd := exec.Command(args[0], args[1:]...)
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "mvukit-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to the mvukit inspector!")
	fmt.Println("Available commands:")
	fmt.Println("  /tools                 - List available tools")
	fmt.Println("  /components [filter]   - List live components")
	fmt.Println("  /inspect <id|name>     - Show a component's model and view")
	fmt.Println("  /events [kind] [limit] - Show recent runtime events")
	fmt.Println("  /close <id>            - Close a component")
	fmt.Println("  /exit                  - Exit the client")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		switch parts[0] {
		case "/exit":
			fmt.Println("Goodbye!")
			return

		case "/tools":
			listTools(ctx, session)

		case "/components":
			toolArgs := map[string]any{}
			if len(parts) > 1 {
				toolArgs["filter"] = strings.Join(parts[1:], " ")
			}
			callTool(ctx, session, "list_components", toolArgs)

		case "/inspect":
			if len(parts) < 2 {
				fmt.Println("Usage: /inspect <id|name>")
				continue
			}
			callTool(ctx, session, "inspect_component", inspectArgs(parts[1]))

		case "/events":
			toolArgs := map[string]any{}
			for _, p := range parts[1:] {
				if n, err := strconv.Atoi(p); err == nil {
					toolArgs["limit"] = n
				} else {
					toolArgs["kind"] = p
				}
			}
			callTool(ctx, session, "recent_events", toolArgs)

		case "/close":
			if len(parts) < 2 {
				fmt.Println("Usage: /close <id>")
				continue
			}
			callTool(ctx, session, "close_component", map[string]any{"id": parts[1]})

		default:
			fmt.Printf("Unknown command %q, try /tools\n", parts[0])
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

// inspectArgs treats anything shaped like a UUID as an id, the rest as a name.
func inspectArgs(ref string) map[string]any {
	if len(ref) == 36 && strings.Count(ref, "-") == 4 {
		return map[string]any{"id": ref}
	}
	return map[string]any{"name": ref}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("❌ Error: ")
	} else {
		fmt.Printf("✅ Result: ")
	}

	if result.StructuredContent != nil {
		if data, err := json.MarshalIndent(result.StructuredContent, "", "  "); err == nil {
			fmt.Println(string(data))
			fmt.Println()
			return
		}
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}
