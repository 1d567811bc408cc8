package rules_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
)

func newTestServerContext(t *testing.T, handler http.Handler) *server.ServerContext {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := auth.DefaultConfig()
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.TokenFile = filepath.Join(t.TempDir(), "tokens.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := auth.NewManager(cfg, auth.WithLogger(logger))
	manager.Cache().Set(&auth.TokenRecord{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
	})

	sc, err := server.NewServerContext(context.Background(), manager,
		server.WithContextLogger(logger))
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	sc.SetGraphClient(graph.NewClient(manager,
		graph.WithBaseURL(srv.URL),
		graph.WithLogger(logger)))
	return sc
}

// rulesStub serves the inbox rule collection and enough of the folder
// hierarchy to resolve "Projects". The POST handler rejects a move action
// that still carries a folder path instead of the resolved ID.
func rulesStub() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":[{"id":"id-projects","displayName":"Projects","totalItemCount":10,"unreadItemCount":0,"childFolderCount":0}]}`)
	})
	mux.HandleFunc("/me/mailFolders/inbox/messageRules", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			var rule graph.MessageRule
			if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if rule.Actions != nil && rule.Actions.MoveToFolder != "" && rule.Actions.MoveToFolder != "id-projects" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":{"code":"ErrorInvalidParameter","message":"moveToFolder must be a folder ID"}}`)
				return
			}
			rule.ID = "rule-new"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(rule)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"rule-1","displayName":"Newsletters","sequence":1,"isEnabled":true,"conditions":{"senderContains":["newsletter"]},"actions":{"moveToFolder":"id-projects","markAsRead":true}},{"id":"rule-2","displayName":"Old filter","sequence":2,"isEnabled":false,"actions":{"delete":true}}]}`)
	})
	return mux
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return tc.Text
}

func TestRegisterRulesTools(t *testing.T) {
	sc := newTestServerContext(t, rulesStub())

	for _, readOnly := range []bool{false, true} {
		s := mcpserver.NewMCPServer("test", "0.0.1")
		if err := RegisterRulesTools(s, sc, readOnly); err != nil {
			t.Errorf("RegisterRulesTools(readOnly=%v) error = %v", readOnly, err)
		}
	}
}

func TestHandleListRules(t *testing.T) {
	sc := newTestServerContext(t, rulesStub())

	result, err := handleListRules(context.Background(), mcp.CallToolRequest{}, sc)
	if err != nil {
		t.Fatalf("handleListRules() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleListRules() returned error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	for _, want := range []string{
		"Found 2 rule(s)",
		"Newsletters",
		"If sender contains: newsletter",
		"Move to folder ID: id-projects",
		"Mark as read",
		"Old filter",
		"[DISABLED]",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rule listing missing %q:\n%s", want, text)
		}
	}
}

func TestHandleCreateRule(t *testing.T) {
	sc := newTestServerContext(t, rulesStub())

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name string
			args map[string]interface{}
			want string
		}{
			{"missing name", map[string]interface{}{"markAsRead": true}, "displayName is required"},
			{"no actions", map[string]interface{}{"displayName": "Filter", "senderContains": "spam"}, "At least one action is required"},
			{"empty forwardTo", map[string]interface{}{"displayName": "Filter", "forwardTo": " , "}, "no valid addresses"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				result, err := handleCreateRule(context.Background(), callRequest(tc.args), sc)
				if err != nil {
					t.Fatalf("handleCreateRule() error = %v", err)
				}
				if !result.IsError {
					t.Fatal("expected error result")
				}
				if !strings.Contains(resultText(t, result), tc.want) {
					t.Errorf("error result missing %q: %s", tc.want, resultText(t, result))
				}
			})
		}
	})

	t.Run("unknown folder", func(t *testing.T) {
		result, err := handleCreateRule(context.Background(), callRequest(map[string]interface{}{
			"displayName":  "Filter",
			"moveToFolder": "Nowhere",
		}), sc)
		if err != nil {
			t.Fatalf("handleCreateRule() error = %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
		if !strings.Contains(resultText(t, result), "Failed to resolve folder") {
			t.Errorf("unexpected error result: %s", resultText(t, result))
		}
	})

	t.Run("creates", func(t *testing.T) {
		result, err := handleCreateRule(context.Background(), callRequest(map[string]interface{}{
			"displayName":    "Project mail",
			"senderContains": "jira, github",
			"moveToFolder":   "Projects",
			"markAsRead":     true,
		}), sc)
		if err != nil {
			t.Fatalf("handleCreateRule() error = %v", err)
		}
		if result.IsError {
			t.Fatalf("handleCreateRule() returned error result: %s", resultText(t, result))
		}

		text := resultText(t, result)
		if !strings.Contains(text, "Rule created: Project mail") {
			t.Errorf("missing confirmation: %s", text)
		}
		if !strings.Contains(text, "ID: rule-new") {
			t.Errorf("missing created rule ID: %s", text)
		}
	})
}

func TestFormatRuleList_Empty(t *testing.T) {
	got := formatRuleList(nil)
	if got != "No inbox rules found." {
		t.Errorf("formatRuleList(nil) = %q", got)
	}
}
