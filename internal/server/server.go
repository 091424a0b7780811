// Package server exposes the toolbox to hosts over the Model Context Protocol.
package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jmgilman/pyexec/internal/tools"
	"github.com/jmgilman/pyexec/internal/version"
)

// Name is the implementation name reported to clients.
const Name = "pyexec"

const executeCodeDescription = `Run a Python code snippet with the project's Python interpreter.
The snippet runs in the current working directory with read/write access to it.
Print anything you want returned: stdout and stderr are captured and returned.
A non-zero exit is reported as an error including the exit code and stderr.`

const managePackagesDescription = `Install, uninstall, or list Python packages using pip.
Packages go into the project's .venv when one exists, otherwise into the
interpreter that would run code. "package" is required for install and
uninstall and ignored for list.`

// Server serves the toolbox for a single working directory.
type Server struct {
	toolbox *tools.Toolbox
	workDir string
	mcp     *mcp.Server
}

// New creates a Server whose tools run in workDir.
func New(tb *tools.Toolbox, workDir string) *Server {
	s := &Server{
		toolbox: tb,
		workDir: workDir,
		mcp:     mcp.NewServer(&mcp.Implementation{Name: Name, Version: version.Version}, nil),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools.ToolExecuteCode,
		Description: executeCodeDescription,
	}, s.executeCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools.ToolManagePackages,
		Description: managePackagesDescription,
	}, s.managePackages)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Run serves on transport until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcp.Run(ctx, transport)
}

func (s *Server) executeCode(ctx context.Context, _ *mcp.CallToolRequest, in tools.ExecuteCodeInput) (*mcp.CallToolResult, tools.ExecuteCodeOutput, error) {
	out, err := s.toolbox.ExecuteCode(ctx, s.workDir, in)
	if err != nil {
		return nil, tools.ExecuteCodeOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) managePackages(ctx context.Context, _ *mcp.CallToolRequest, in tools.ManagePackagesInput) (*mcp.CallToolResult, tools.ManagePackagesOutput, error) {
	out, err := s.toolbox.ManagePackages(ctx, s.workDir, in)
	if err != nil {
		return nil, tools.ManagePackagesOutput{}, err
	}
	return nil, *out, nil
}
