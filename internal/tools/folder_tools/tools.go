package folder_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// RegisterFolderTools registers mail folder tools with the MCP server.
func RegisterFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List folders tool
	listFoldersTool := mcp.NewTool("list-folders",
		mcp.WithDescription("List mail folders. Without arguments lists the top-level folders; pass a folder path to list its children."),
		mcp.WithString("folder",
			mcp.Description("Folder path whose children to list, e.g. 'Projects' (default: top level)"),
		),
	)

	s.AddTool(listFoldersTool, common.InstrumentedToolHandlerWithService(
		"list-folders", "folders", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListFolders(ctx, request, sc)
		}))

	return nil
}

func handleListFolders(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	folder := common.GetFolderFromArgs(args)

	client := sc.GraphClient()

	var (
		folders []graph.Folder
		scope   string
		err     error
	)
	if folder == "" {
		scope = "top level"
		folders, err = client.ListFolders(ctx)
	} else {
		scope = folder
		var folderID string
		folderID, err = client.ResolveFolderPath(ctx, folder)
		if err == nil {
			folders, err = client.ListChildFolders(ctx, folderID)
		}
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list folders: %v", err)), nil
	}

	return mcp.NewToolResultText(formatFolderList(folders, scope)), nil
}

func formatFolderList(folders []graph.Folder, scope string) string {
	if len(folders) == 0 {
		return fmt.Sprintf("No folders found at %s.", scope)
	}

	result := fmt.Sprintf("Found %d folder(s) at %s:\n\n", len(folders), scope)
	for i, f := range folders {
		result += fmt.Sprintf("%d. %s\n", i+1, f.DisplayName)
		result += fmt.Sprintf("   Messages: %d (%d unread)\n", f.TotalItemCount, f.UnreadItemCount)
		if f.ChildFolderCount > 0 {
			result += fmt.Sprintf("   Subfolders: %d\n", f.ChildFolderCount)
		}
		result += "\n"
	}
	return result
}
