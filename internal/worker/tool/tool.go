// Package tool implements the executable tools a worker node may
// invoke mid-turn: the filesystem, search, and code-execution
// capabilities ProvisionTools grants per node (read_file, list_files,
// web_search, execute_python, write_file).
package tool

import "context"

// Tool is one callable capability exposed to a ChatModel via its
// ToolSpec name.
type Tool interface {
	// Name is the identifier matched against a model.ToolCall.Name.
	Name() string

	// Call executes the tool against input and returns a structured
	// result, or an error describing why it could not run.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
