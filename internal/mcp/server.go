package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/taskmastery/taskdash/pkg/models"
)

// TodoAPI is the authenticated API surface the tools operate on.
type TodoAPI interface {
	Me(ctx context.Context) (*models.User, error)
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, title, description string) (*models.Todo, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// NewServer creates an MCP server exposing the signed-in user's todo list as
// tools. It is the functional counterpart of the assistant panel in the web
// dashboard: an agent connected over stdio can read and manage the same
// tasks the user sees.
func NewServer(apiClient TodoAPI) *server.MCPServer {
	s := server.NewMCPServer("TaskDash", "0.1.0")

	s.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Get the profile of the signed-in user."),
	), whoamiHandler(apiClient))

	s.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List the user's todos, optionally filtered."),
		mcp.WithString("filter", mcp.Description("Filter: all, pending or completed (defaults to all)")),
	), listTodosHandler(apiClient))

	s.AddTool(mcp.NewTool("add_todo",
		mcp.WithDescription("Create a new todo."),
		mcp.WithString("title", mcp.Description("Todo title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Optional description")),
	), addTodoHandler(apiClient))

	s.AddTool(mcp.NewTool("complete_todo",
		mcp.WithDescription("Mark a todo as completed."),
		mcp.WithString("id", mcp.Description("Todo id"), mcp.Required()),
	), setCompletedHandler(apiClient, true))

	s.AddTool(mcp.NewTool("reopen_todo",
		mcp.WithDescription("Mark a completed todo as pending again."),
		mcp.WithString("id", mcp.Description("Todo id"), mcp.Required()),
	), setCompletedHandler(apiClient, false))

	s.AddTool(mcp.NewTool("delete_todo",
		mcp.WithDescription("Delete a todo."),
		mcp.WithString("id", mcp.Description("Todo id"), mcp.Required()),
	), deleteTodoHandler(apiClient))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func whoamiHandler(apiClient TodoAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := apiClient.Me(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(user)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listTodosHandler(apiClient TodoAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode := models.FilterMode(mcp.ParseString(request, "filter", string(models.FilterAll)))

		todos, err := apiClient.ListTodos(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		filtered := make([]models.Todo, 0, len(todos))
		for i := range todos {
			if mode.Matches(&todos[i]) {
				filtered = append(filtered, todos[i])
			}
		}

		data, err := json.Marshal(map[string]interface{}{"todos": filtered})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func addTodoHandler(apiClient TodoAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		description := mcp.ParseString(request, "description", "")
		if title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}

		todo, err := apiClient.CreateTodo(ctx, title, description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(todo)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func setCompletedHandler(apiClient TodoAPI, completed bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		todo, err := apiClient.SetCompleted(ctx, id, completed)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		state := "pending"
		if todo.Completed {
			state = "completed"
		}
		return mcp.NewToolResultText(fmt.Sprintf("Todo '%s' is now %s", todo.Title, state)), nil
	}
}

func deleteTodoHandler(apiClient TodoAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		if err := apiClient.DeleteTodo(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Todo deleted successfully"), nil
	}
}
