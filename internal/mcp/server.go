package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/stevehiehn/maintain/internal/config"
)

// JSONRPCRequest is a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Options configures the MCP server.
type Options struct {
	WorkDir   string // resolves relative plan paths; also the artifact root
	PlansDir  string // each plan here is exposed as its own tool
	NewHandle config.HandleFactory
}

// Server answers MCP requests. Tool calls run sequentially, one request at a
// time, so at most one plan holds the application handle.
type Server struct {
	opts Options
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	return &Server{opts: opts}
}

// Serve reads newline-delimited requests from in and writes responses to out
// until in is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req JSONRPCRequest
		if err := sonic.Unmarshal(line, &req); err != nil {
			writeResponse(out, &JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: -32700, Message: "Parse error"},
			})
			continue
		}
		// Notifications carry no id and never get a response.
		if req.ID == nil {
			log.Debug().Str("method", req.Method).Msg("MCP notification received")
			continue
		}

		resp := s.dispatch(ctx, req)
		resp.JSONRPC = "2.0"
		resp.ID = req.ID
		writeResponse(out, resp)
	}
	return scanner.Err()
}

func writeResponse(w io.Writer, resp *JSONRPCResponse) {
	data, err := sonic.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Encoding MCP response failed")
		return
	}
	fmt.Fprintf(w, "%s\n", data)
}
